package strategies

import (
	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/risk"
	"github.com/rustyeddy/marginsim/sim"
)

// ProfitThreshold tops leverage back up to target once the position has
// grown ThresholdPct percent since entry or since its last top-up. It only
// ever buys: gains are locked in by scaling exposure, never by selling.
type ProfitThreshold struct {
	ThresholdPct float64 // 100 means the position value has doubled
	CostBps      float64 // charged on the notional bought, financed by the loan
}

func NewProfitThreshold(thresholdPct, costBps float64) (ProfitThreshold, error) {
	if !(thresholdPct > 0) {
		return ProfitThreshold{}, market.InvalidParam("profit_threshold_pct", "%.4g must be positive", thresholdPct)
	}
	if !(costBps >= 0) {
		return ProfitThreshold{}, market.InvalidParam("transaction_cost_bps", "%.4g must not be negative", costBps)
	}
	return ProfitThreshold{ThresholdPct: thresholdPct, CostBps: costBps}, nil
}

// Rebalance implements sim.Rebalancer.
func (p ProfitThreshold) Rebalance(in sim.RebalanceInput) (sim.Position, sim.RebalanceEvent, bool, error) {
	if in.Anchor <= 0 || in.Equity <= 0 {
		return in.Position, sim.RebalanceEvent{}, false, nil
	}

	growthPct := (in.PortfolioValue - in.Anchor) / in.Anchor * 100
	if growthPct < p.ThresholdPct {
		return in.Position, sim.RebalanceEvent{}, false, nil
	}

	before, err := risk.Leverage(in.PortfolioValue, in.Equity)
	if err != nil {
		return in.Position, sim.RebalanceEvent{}, false, err
	}
	if before >= in.TargetLeverage {
		return in.Position, sim.RebalanceEvent{}, false, nil
	}

	notional := in.Equity*in.TargetLeverage - in.PortfolioValue
	fee := notional * p.CostBps / 10_000
	pos := in.Position.Borrow(notional, fee, in.Price)

	pv := pos.Value(in.Price)
	after, err := risk.Leverage(pv, pv-pos.Loan)
	if err != nil {
		return in.Position, sim.RebalanceEvent{}, false, err
	}

	return pos, sim.RebalanceEvent{
		Date:             in.Date,
		Round:            in.Round,
		Price:            in.Price,
		GrowthTriggerPct: growthPct,
		SharesAdded:      notional / in.Price,
		Borrowed:         notional + fee,
		TransactionCost:  fee,
		LeverageBefore:   before,
		LeverageAfter:    after,
		PortfolioAfter:   pv,
	}, true, nil
}
