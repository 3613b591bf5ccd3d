package backtest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/marginsim/cache"
	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/sim"
	"github.com/rustyeddy/marginsim/strategies"
)

func ptr(v float64) *float64 { return &v }

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	var ipe *market.InvalidParameterError
	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"start after end", func(r *Request) {
			r.Start, r.End = date("2024-02-01"), date("2024-01-01")
		}, "start_date"},
		{"start equals end", func(r *Request) {
			r.Start, r.End = date("2024-02-01"), date("2024-02-01")
		}, "start_date"},
		{"leverage above reg-t", func(r *Request) { r.Leverage = 2.5 }, "leverage"},
		{"leverage below one", func(r *Request) { r.Leverage = 0.5 }, "leverage"},
		{"zero capital", func(r *Request) { r.Capital = 0 }, "capital"},
		{"unknown mode", func(r *Request) { r.Mode = "martingale" }, "mode"},
		{"unknown basis", func(r *Request) { r.FreshBasis = "loan" }, "fresh_basis"},
		{"bad maintenance", func(r *Request) { r.Maintenance = ptr(1.2) }, "maintenance_margin"},
		{"threshold missing", func(r *Request) {
			r.Mode, r.ProfitThresholdPct = strategies.ModeProfitThreshold, 0
		}, "profit_threshold_pct"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := DefaultRequest()
			tt.mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			require.True(t, errors.As(err, &ipe), "%T: %v", err, err)
			assert.Equal(t, tt.field, ipe.Field)
		})
	}

	assert.NoError(t, DefaultRequest().Validate())
}

func TestRequestOverrides(t *testing.T) {
	t.Parallel()

	req := DefaultRequest()
	req.Maintenance = ptr(0.30)
	req.Spread = ptr(0.75)

	p, err := req.Params()
	require.NoError(t, err)
	assert.Equal(t, 0.30, p.MaintenanceMargin)
	assert.Equal(t, 0.75, p.BorrowSpread)

	cfg, err := req.SimConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.30, cfg.Maintenance)
	assert.Equal(t, sim.DefaultWaitDays, cfg.WaitDays)
	assert.Equal(t, sim.CarryForward{}, cfg.Reentry)
}

func TestRunnerDerivesBorrowRateAndAccrues(t *testing.T) {
	t.Parallel()

	var r Runner
	res, err := r.Run(context.Background(), DefaultRequest(), dailyRows("2024-01-01", flat(12, 100)...))
	require.NoError(t, err)

	recs := res.Ledger.Records
	require.Len(t, recs, 12)
	assert.Equal(t, sim.StatusEntered, recs[0].Status)
	assert.Zero(t, recs[0].DailyInterestCost)
	assert.Equal(t, 6.5, recs[1].BorrowRate)
	assert.InDelta(t, 10_000*0.065/365, recs[1].DailyInterestCost, 1e-9)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "carry_forward", res.Policy)
	assert.Equal(t, date("2024-01-01"), res.Start)
	assert.Equal(t, date("2024-01-12"), res.End)
	assert.Equal(t, 10_000.0, res.Metrics.InitialEquity)
	assert.Less(t, res.Metrics.FinalEquity, 10_000.0)
	assert.Zero(t, res.Metrics.Liquidations)
	require.Len(t, res.Ledger.Rounds, 1)
	assert.Equal(t, sim.OutcomeNaturalEnd, res.Ledger.Rounds[0].Outcome)
}

func TestRunnerRestrictsToRequestedRange(t *testing.T) {
	t.Parallel()

	req := DefaultRequest()
	req.Start, req.End = date("2024-01-03"), date("2024-01-12")

	var r Runner
	res, err := r.Run(context.Background(), req, dailyRows("2024-01-01", flat(20, 100)...))
	require.NoError(t, err)
	assert.Len(t, res.Ledger.Records, 10)
	assert.Equal(t, date("2024-01-03"), res.Ledger.Records[0].Date)

	req.End = date("2024-01-11")
	_, err = r.Run(context.Background(), req, dailyRows("2024-01-01", flat(20, 100)...))
	var ide *market.InsufficientDataError
	assert.True(t, errors.As(err, &ide))
}

func TestRunnerRejectsNegativeDividend(t *testing.T) {
	t.Parallel()

	rows := dailyRows("2024-01-01", flat(12, 100)...)
	rows[5].Dividend = -1

	var r Runner
	res, err := r.Run(context.Background(), DefaultRequest(), rows)
	var ipe *market.InvalidParameterError
	require.True(t, errors.As(err, &ipe), "%T: %v", err, err)
	assert.Equal(t, "dividend", ipe.Field)
	assert.Empty(t, res.Ledger.Records)
}

func TestRunnerPortfolioMarginSevenX(t *testing.T) {
	t.Parallel()

	// At 7x equity is 1/7 of the position, under the 15% maintenance
	// requirement, so every entry is liquidated at its own close.
	req := DefaultRequest()
	req.Account, req.Leverage = market.PortfolioMargin, 7

	var r Runner
	res, err := r.Run(context.Background(), req, dailyRows("2024-01-01", flat(12, 100)...))
	require.NoError(t, err)

	recs := res.Ledger.Records
	assert.Equal(t, sim.StatusLiquidated, recs[0].Status)
	assert.True(t, recs[0].IsMarginCall)
	assert.InDelta(t, 10_000, recs[0].LiquidationValue, 1e-6)
	assert.Equal(t, sim.StatusWaiting, recs[1].Status)
	assert.Equal(t, sim.StatusLiquidated, recs[3].Status)
	assert.Equal(t, 4, res.Metrics.Liquidations)
	assert.Equal(t, 1, res.Ledger.Rounds[0].DaysHeld)
}

func TestRunnerCache(t *testing.T) {
	t.Parallel()

	memo, err := cache.New[Result](8)
	require.NoError(t, err)
	r := Runner{Cache: memo}
	rows := dailyRows("2024-01-01", flat(12, 100)...)

	first, err := r.Run(context.Background(), DefaultRequest(), rows)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := r.Run(context.Background(), DefaultRequest(), rows)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Ledger, second.Ledger)
	assert.Equal(t, first.Metrics, second.Metrics)

	second.Ledger.Records[0].Equity = -1
	third, err := r.Run(context.Background(), DefaultRequest(), rows)
	require.NoError(t, err)
	assert.Equal(t, first.Ledger.Records[0].Equity, third.Ledger.Records[0].Equity)

	other := DefaultRequest()
	other.Leverage = 1.5
	fourth, err := r.Run(context.Background(), other, rows)
	require.NoError(t, err)
	assert.False(t, fourth.Cached)

	hits, misses := memo.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestRunnerHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var r Runner
	_, err := r.Run(ctx, DefaultRequest(), dailyRows("2024-01-01", flat(12, 100)...))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerLogs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	r := Runner{Logger: zap.New(core)}
	res, err := r.Run(context.Background(), DefaultRequest(), dailyRows("2024-01-01", flat(12, 100)...))
	require.NoError(t, err)

	done := logs.FilterMessage("run complete").All()
	require.Len(t, done, 1)
	assert.Equal(t, res.RunID, done[0].ContextMap()["run_id"])
	assert.Equal(t, 1, logs.FilterMessage("run starting").Len())
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	var r Runner
	req := DefaultRequest()
	req.Mode = strategies.ModeFreshCapital
	res, err := r.Run(context.Background(), req, dailyRows("2024-01-01", flat(12, 100)...))
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintResult(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Run ID:        "+res.RunID)
	assert.Contains(t, out, "Mode:          fresh_capital (fresh_capital/requested)")
	assert.Contains(t, out, "Start:         2024-01-01")
	assert.Contains(t, out, "Initial:       10000.00")
	assert.Contains(t, out, "Margin Calls:  0")
	assert.Contains(t, out, "natural_end")
	assert.NotContains(t, out, "Cached:")
}
