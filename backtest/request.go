package backtest

import (
	"time"

	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/risk"
	"github.com/rustyeddy/marginsim/sim"
	"github.com/rustyeddy/marginsim/strategies"
)

// Request is everything a single simulation depends on besides the data.
// It is a value: copy it to vary a parameter.
type Request struct {
	Account     market.AccountType `json:"account"`
	Capital     float64            `json:"capital"`
	Leverage    float64            `json:"leverage"`
	Maintenance *float64           `json:"maintenance,omitempty"` // fraction, overrides the account default
	Spread      *float64           `json:"spread,omitempty"`      // annual %, overrides the account default

	Start time.Time `json:"start"` // zero means the first row
	End   time.Time `json:"end"`   // zero means the last row

	Mode               strategies.Mode `json:"mode"`
	WaitDays           int             `json:"wait_days"`
	MinReentryEquity   float64         `json:"min_reentry_equity"`
	FreshBasis         sim.FreshBasis  `json:"fresh_basis,omitempty"`
	ProfitThresholdPct float64         `json:"profit_threshold_pct,omitempty"`
	TransactionCostBps float64         `json:"transaction_cost_bps,omitempty"`
}

// DefaultRequest is a Reg-T, 2x, liquidation/re-entry run of 10k.
func DefaultRequest() Request {
	return Request{
		Account:            market.RegT,
		Capital:            10_000,
		Leverage:           2.0,
		Mode:               strategies.ModeReentry,
		WaitDays:           sim.DefaultWaitDays,
		MinReentryEquity:   sim.DefaultMinReentryEquity,
		FreshBasis:         sim.BasisRequested,
		ProfitThresholdPct: 100,
	}
}

// Params resolves the account's margin parameters with any overrides.
func (r Request) Params() (risk.Params, error) {
	p, err := risk.Resolve(r.Account, r.Leverage)
	if err != nil {
		return risk.Params{}, err
	}
	if r.Maintenance != nil {
		if p, err = p.WithMaintenance(*r.Maintenance); err != nil {
			return risk.Params{}, err
		}
	}
	if r.Spread != nil {
		if p, err = p.WithSpread(*r.Spread); err != nil {
			return risk.Params{}, err
		}
	}
	return p, nil
}

// Validate fails fast on anything that would stop the run before day one.
func (r Request) Validate() error {
	_, err := r.SimConfig()
	return err
}

// SimConfig resolves the request into engine configuration.
func (r Request) SimConfig() (sim.Config, error) {
	if !r.Start.IsZero() && !r.End.IsZero() && !r.Start.Before(r.End) {
		return sim.Config{}, market.InvalidParam("start_date", "%s must be before end date %s",
			r.Start.Format(market.DateLayout), r.End.Format(market.DateLayout))
	}
	p, err := r.Params()
	if err != nil {
		return sim.Config{}, err
	}
	mode, err := strategies.ParseMode(string(r.Mode))
	if err != nil {
		return sim.Config{}, market.InvalidParam("mode", "%v", err)
	}
	basis, err := sim.ParseFreshBasis(string(r.FreshBasis))
	if err != nil {
		return sim.Config{}, market.InvalidParam("fresh_basis", "%v", err)
	}
	policy, reb, err := strategies.Build(mode, strategies.Options{
		FreshBasis:         basis,
		ProfitThresholdPct: r.ProfitThresholdPct,
		TransactionCostBps: r.TransactionCostBps,
	})
	if err != nil {
		return sim.Config{}, err
	}

	cfg := sim.Config{
		Capital:          r.Capital,
		TargetLeverage:   p.Leverage,
		Maintenance:      p.MaintenanceMargin,
		WaitDays:         r.WaitDays,
		MinReentryEquity: r.MinReentryEquity,
		Reentry:          policy,
		Rebalancer:       reb,
	}
	return cfg, cfg.Validate()
}
