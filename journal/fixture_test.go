package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/sim"
	"github.com/rustyeddy/marginsim/strategies"
)

// fixture runs a profit-threshold request over a path that rebalances once
// on the way up and is liquidated on the way down.
func fixture(t *testing.T) backtest.Result {
	t.Helper()

	prices := []float64{100, 130, 160, 200, 100, 100, 100, 100, 100, 100, 100, 100}
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]market.DailyObservation, len(prices))
	for i, p := range prices {
		rows[i] = market.DailyObservation{Date: start.AddDate(0, 0, i), Price: p, ReferenceRate: 4, BorrowRate: 5.5}
	}
	rows[9].Dividend = 0.5

	req := backtest.DefaultRequest()
	req.Mode = strategies.ModeProfitThreshold
	req.ProfitThresholdPct = 50
	req.TransactionCostBps = 5

	var r backtest.Runner
	res, err := r.Run(context.Background(), req, rows)
	require.NoError(t, err)
	require.Len(t, res.Ledger.Rebalances, 1)
	require.Len(t, res.Ledger.Rounds, 2)
	require.Equal(t, sim.StatusLiquidated, res.Ledger.Records[4].Status)
	return res
}
