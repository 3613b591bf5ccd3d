package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/marginsim/cache"
	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/metrics"
	"github.com/rustyeddy/marginsim/pkg/id"
	"github.com/rustyeddy/marginsim/risk"
	"github.com/rustyeddy/marginsim/sim"
)

// Result is one completed simulation.
type Result struct {
	RunID   string
	Created time.Time
	Request Request
	Params  risk.Params
	Policy  string

	Start time.Time
	End   time.Time

	Ledger  sim.Ledger
	Metrics metrics.RunMetrics

	// Cached is set when the ledger came from the memo.
	Cached bool
}

// Runner resolves a request, replays it over the data and derives metrics.
// Both fields are optional. Runner is safe for concurrent use when its
// cache is.
type Runner struct {
	Logger *zap.Logger
	Cache  *cache.Memo[Result]
}

// Run executes req over rows. Rows are restricted to the request's date
// range and missing borrow rates are derived from the account's spread.
// The context is checked once, before any work; a run in progress is never
// interrupted.
func (r *Runner) Run(ctx context.Context, req Request, rows []market.DailyObservation) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cfg, err := req.SimConfig()
	if err != nil {
		return Result{}, err
	}
	params, err := req.Params()
	if err != nil {
		return Result{}, err
	}
	series, err := Prepare(rows, req.Start, req.End, params.BorrowSpread)
	if err != nil {
		return Result{}, err
	}

	key := ""
	if r.Cache != nil {
		if key, err = cache.Key(req, series.Observations()); err != nil {
			log.Debug("result not cacheable", zap.Error(err))
			key = ""
		}
	}
	if key != "" {
		if hit, ok := r.Cache.Get(key); ok {
			res := hit
			res.RunID, res.Created = id.New(), time.Now().UTC()
			res.Ledger = hit.Ledger.Clone()
			res.Cached = true
			log.Debug("cache hit", zap.String("run_id", res.RunID), zap.String("key", key[:12]))
			return res, nil
		}
	}

	log.Info("run starting",
		zap.String("account", string(params.AccountType)),
		zap.Float64("leverage", params.Leverage),
		zap.String("mode", string(req.Mode)),
		zap.String("policy", cfg.Reentry.Name()),
		zap.Time("start", series.Start()),
		zap.Time("end", series.End()),
		zap.Int("days", series.Len()),
	)

	ledger, err := sim.Run(cfg, series)
	if err != nil {
		return Result{}, fmt.Errorf("simulate: %w", err)
	}

	initial := cfg.Reentry.InitialCapital(cfg.Capital, cfg.TargetLeverage)
	res := Result{
		RunID:   id.New(),
		Created: time.Now().UTC(),
		Request: req,
		Params:  params,
		Policy:  cfg.Reentry.Name(),
		Start:   series.Start(),
		End:     series.End(),
		Ledger:  ledger,
		Metrics: metrics.Compute(ledger, initial),
	}

	log.Debug("liquidations", zap.String("run_id", res.RunID), zap.Int("count", res.Metrics.Liquidations))
	log.Info("run complete",
		zap.String("run_id", res.RunID),
		zap.Int("rounds", res.Metrics.Rounds),
		zap.Int("liquidations", res.Metrics.Liquidations),
		zap.Float64("final_equity", res.Metrics.FinalEquity),
		zap.Float64("cagr_pct", res.Metrics.CAGRPct),
	)

	if key != "" {
		stored := res
		stored.Ledger = ledger.Clone()
		r.Cache.Add(key, stored)
	}
	return res, nil
}
