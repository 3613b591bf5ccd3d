package strategies

import (
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func path(prices ...float64) []market.DailyObservation {
	start := time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)
	out := make([]market.DailyObservation, len(prices))
	for i, p := range prices {
		out[i] = market.DailyObservation{Date: start.AddDate(0, 0, i), Price: p}
	}
	return out
}

func replay(t *testing.T, cfg sim.Config, obs []market.DailyObservation) sim.Ledger {
	t.Helper()
	e, err := sim.NewEngine(cfg)
	require.NoError(t, err)
	for _, o := range obs {
		require.NoError(t, e.Step(o))
	}
	l, err := e.Finish()
	require.NoError(t, err)
	return l
}

func TestProfitThresholdDoublingRestoresLeverage(t *testing.T) {
	t.Parallel()

	pt, err := NewProfitThreshold(100, 0)
	require.NoError(t, err)

	cfg := sim.Config{
		Capital:        1_000_000,
		TargetLeverage: 2.0,
		Maintenance:    0.25,
		WaitDays:       sim.DefaultWaitDays,
		Rebalancer:     pt,
	}
	l := replay(t, cfg, path(100, 150, 200, 200))

	assert.Equal(t, sim.StatusEntered, l.Records[0].Status)
	assert.Equal(t, 2_000_000.0, l.Records[0].PortfolioValue)
	assert.Equal(t, sim.StatusActive, l.Records[1].Status)

	r := l.Records[2]
	assert.Equal(t, sim.StatusRebalanced, r.Status)
	assert.InDelta(t, 6_000_000, r.PortfolioValue, 1e-6)
	assert.InDelta(t, 3_000_000, r.Equity, 1e-6)
	assert.InDelta(t, 3_000_000, r.MarginLoan, 1e-6)

	require.Len(t, l.Rebalances, 1)
	ev := l.Rebalances[0]
	assert.Equal(t, r.Date, ev.Date)
	assert.Equal(t, 1, ev.Round)
	assert.InDelta(t, 100, ev.GrowthTriggerPct, 1e-9)
	assert.InDelta(t, 10_000, ev.SharesAdded, 1e-9)
	assert.InDelta(t, 4.0/3.0, ev.LeverageBefore, 1e-9)
	assert.InDelta(t, 2.0, ev.LeverageAfter, 1e-9)
	assert.Zero(t, ev.TransactionCost)

	// The anchor moved to 6M, so a flat day does not fire again.
	assert.Equal(t, sim.StatusActive, l.Records[3].Status)
	assert.Equal(t, 1, l.Rounds[0].Rebalances)
}

func TestProfitThresholdChargesTransactionCost(t *testing.T) {
	t.Parallel()

	pt, err := NewProfitThreshold(100, 10)
	require.NoError(t, err)

	pos, ev, ok, err := pt.Rebalance(sim.RebalanceInput{
		Price:          200,
		Position:       sim.Position{Shares: 20_000, Loan: 1_000_000},
		PortfolioValue: 4_000_000,
		Equity:         3_000_000,
		TargetLeverage: 2.0,
		Anchor:         2_000_000,
	})
	require.NoError(t, err)
	require.True(t, ok)

	assert.InDelta(t, 2_000, ev.TransactionCost, 1e-9)
	assert.InDelta(t, 2_002_000, ev.Borrowed, 1e-9)
	assert.InDelta(t, 30_000, pos.Shares, 1e-9)
	assert.InDelta(t, 3_002_000, pos.Loan, 1e-9)
	assert.InDelta(t, 2_998_000, pos.Equity(200), 1e-9)
	assert.InDelta(t, 6_000_000/2_998_000.0, ev.LeverageAfter, 1e-12)
}

func TestProfitThresholdHoldsOff(t *testing.T) {
	t.Parallel()

	pt := ProfitThreshold{ThresholdPct: 50}
	base := sim.RebalanceInput{
		Price:          100,
		Position:       sim.Position{Shares: 100, Loan: 5_000},
		PortfolioValue: 10_000,
		Equity:         5_000,
		TargetLeverage: 2.0,
		Anchor:         10_000,
	}

	tests := []struct {
		name   string
		mutate func(*sim.RebalanceInput)
	}{
		{"no growth", func(in *sim.RebalanceInput) {}},
		{"growth below threshold", func(in *sim.RebalanceInput) {
			in.PortfolioValue, in.Equity = 14_000, 9_000
		}},
		{"leverage already at target", func(in *sim.RebalanceInput) {
			in.TargetLeverage = 1.0
			in.Position.Loan = 0
			in.PortfolioValue, in.Equity = 20_000, 20_000
		}},
		{"no anchor", func(in *sim.RebalanceInput) {
			in.Anchor = 0
			in.PortfolioValue, in.Equity = 20_000, 15_000
		}},
		{"wiped out", func(in *sim.RebalanceInput) {
			in.PortfolioValue, in.Equity = 20_000, -1
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := base
			tt.mutate(&in)
			pos, _, ok, err := pt.Rebalance(in)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, in.Position, pos)
		})
	}
}

func TestNewProfitThresholdValidation(t *testing.T) {
	t.Parallel()

	var ipe *market.InvalidParameterError
	_, err := NewProfitThreshold(0, 0)
	assert.True(t, errors.As(err, &ipe))
	_, err = NewProfitThreshold(100, -1)
	assert.True(t, errors.As(err, &ipe))
}

func TestBuild(t *testing.T) {
	t.Parallel()

	policy, reb, err := Build(ModeReentry, Options{})
	require.NoError(t, err)
	assert.Equal(t, sim.CarryForward{}, policy)
	assert.Nil(t, reb)

	policy, reb, err = Build(ModeFreshCapital, Options{FreshBasis: sim.BasisCashPerRound})
	require.NoError(t, err)
	assert.Equal(t, sim.FreshCapital{Basis: sim.BasisCashPerRound}, policy)
	assert.Nil(t, reb)

	policy, reb, err = Build(ModeProfitThreshold, Options{ProfitThresholdPct: 75, TransactionCostBps: 5})
	require.NoError(t, err)
	assert.Equal(t, sim.CarryForward{}, policy)
	assert.Equal(t, ProfitThreshold{ThresholdPct: 75, CostBps: 5}, reb)

	_, _, err = Build(ModeProfitThreshold, Options{})
	assert.Error(t, err)
	_, _, err = Build(Mode("martingale"), Options{})
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Mode{
		"":                 ModeReentry,
		"fresh-capital":    ModeFreshCapital,
		"PROFIT_THRESHOLD": ModeProfitThreshold,
	} {
		got, err := ParseMode(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("yolo")
	assert.Error(t, err)
	assert.Len(t, Modes(), 3)
}
