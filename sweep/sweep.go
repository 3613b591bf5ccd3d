// Package sweep runs one request across a range of values for a single
// parameter, in parallel.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/strategies"
)

// Parameter names the request field a sweep varies.
type Parameter string

const (
	Leverage        Parameter = "leverage"
	Investment      Parameter = "investment"
	ProfitThreshold Parameter = "profit_threshold"
)

func ParseParameter(s string) (Parameter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leverage":
		return Leverage, nil
	case "investment", "capital":
		return Investment, nil
	case "profit_threshold", "profit-threshold", "threshold":
		return ProfitThreshold, nil
	default:
		return "", fmt.Errorf("unknown sweep parameter %q (supported: leverage, investment, profit_threshold)", s)
	}
}

// Apply returns a copy of req with the parameter set to v.
func (p Parameter) Apply(req backtest.Request, v float64) (backtest.Request, error) {
	switch p {
	case Leverage:
		req.Leverage = v
	case Investment:
		req.Capital = v
	case ProfitThreshold:
		req.ProfitThresholdPct = v
	default:
		return req, fmt.Errorf("unknown sweep parameter %q", p)
	}
	return req, nil
}

// Point is one successful run of the sweep.
type Point struct {
	Value  float64
	Result backtest.Result
}

// Failure is a value whose run could not complete.
type Failure struct {
	Value float64
	Err   error
}

// Report holds the outcome of a sweep, both slices in input order.
type Report struct {
	Parameter Parameter
	Points    []Point
	Failed    []Failure
}

// Sweeper fans runs out over a bounded number of workers. Runs share
// nothing but the read-only rows and the runner's memo.
type Sweeper struct {
	Runner  *backtest.Runner
	Logger  *zap.Logger
	Metrics *Metrics // optional
	Workers int      // <= 0 means GOMAXPROCS
}

// Run sweeps param across values. A value whose run fails is logged and
// reported in Failed; the rest of the sweep carries on. Cancellation is
// checked before each run starts, and a canceled sweep returns the
// context's error together with whatever had completed. Sweeping the
// profit threshold outside profit threshold mode is rejected up front.
func (s *Sweeper) Run(ctx context.Context, base backtest.Request, param Parameter, values []float64, rows []market.DailyObservation) (Report, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	runner := s.Runner
	if runner == nil {
		runner = &backtest.Runner{Logger: log}
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if _, err := param.Apply(base, 0); err != nil {
		return Report{}, err
	}
	// Only the profit threshold mode reads the threshold; any other mode
	// would run the same simulation once per value.
	if param == ProfitThreshold {
		if mode, err := strategies.ParseMode(string(base.Mode)); err == nil && mode != strategies.ModeProfitThreshold {
			return Report{}, market.InvalidParam("parameter", "%s has no effect in %s mode", param, mode)
		}
	}

	type outcome struct {
		res backtest.Result
		err error
		ran bool
	}
	outcomes := make([]outcome, len(values))

	log.Info("sweep starting",
		zap.String("parameter", string(param)),
		zap.Int("points", len(values)),
		zap.Int("workers", workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, v := range values {
		i, v := i, v
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			req, _ := param.Apply(base, v)

			start := time.Now()
			res, err := runner.Run(gctx, req, rows)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.Metrics.observe(req, res, err, time.Since(start))
			outcomes[i] = outcome{res: res, err: err, ran: true}
			if err != nil {
				log.Warn("sweep point failed",
					zap.String("parameter", string(param)),
					zap.Float64("value", v),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	werr := g.Wait()

	rep := Report{Parameter: param}
	for i, o := range outcomes {
		switch {
		case !o.ran:
		case o.err != nil:
			rep.Failed = append(rep.Failed, Failure{Value: values[i], Err: o.err})
		default:
			rep.Points = append(rep.Points, Point{Value: values[i], Result: o.res})
		}
	}

	log.Info("sweep complete",
		zap.String("parameter", string(param)),
		zap.Int("succeeded", len(rep.Points)),
		zap.Int("failed", len(rep.Failed)),
	)
	if werr != nil {
		return rep, werr
	}
	return rep, ctx.Err()
}
