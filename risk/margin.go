package risk

import (
	"math"

	"github.com/rustyeddy/marginsim/market"
)

// Params are the margin terms a broker applies to a long ETF position.
// Margin ratios are fractions of position value; BorrowSpread is an
// annualized percentage added to the reference rate.
type Params struct {
	AccountType       market.AccountType
	Leverage          float64
	MaxLeverage       float64
	InitialMargin     float64
	MaintenanceMargin float64
	BorrowSpread      float64
}

// Resolve derives margin terms for an account type and requested leverage.
//
//	Reg-T:            2.0x max, 50% initial, 25% maintenance, +1.5% spread
//	Portfolio margin: 7.0x max, max(1/lev, 14.29%) initial, 15% maintenance, +2.0% spread
func Resolve(acct market.AccountType, leverage float64) (Params, error) {
	var p Params
	switch acct {
	case market.RegT:
		p = Params{MaxLeverage: 2.0, InitialMargin: 0.50, MaintenanceMargin: 0.25, BorrowSpread: 1.5}
	case market.PortfolioMargin:
		p = Params{MaxLeverage: 7.0, MaintenanceMargin: 0.15, BorrowSpread: 2.0}
		if leverage > 0 {
			p.InitialMargin = math.Max(1/leverage, 0.1429)
		}
	default:
		return Params{}, market.InvalidParam("account_type", "unknown account type %q", acct)
	}
	p.AccountType = acct
	p.Leverage = leverage

	if math.IsNaN(leverage) || leverage < 1.0 {
		return Params{}, market.InvalidParam("leverage", "%.4g is below 1.0", leverage)
	}
	if leverage > p.MaxLeverage {
		return Params{}, market.InvalidParam("leverage", "%.4g exceeds %s maximum of %.1f", leverage, acct, p.MaxLeverage)
	}
	return p, nil
}

// WithMaintenance overrides the maintenance ratio.
func (p Params) WithMaintenance(m float64) (Params, error) {
	if math.IsNaN(m) || m <= 0 || m >= 1 {
		return Params{}, market.InvalidParam("maintenance_margin", "%.4g must be in (0, 1)", m)
	}
	p.MaintenanceMargin = m
	return p, nil
}

// WithSpread overrides the borrow spread.
func (p Params) WithSpread(s float64) (Params, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
		return Params{}, market.InvalidParam("borrow_spread", "%.4g must be a finite non-negative percentage", s)
	}
	p.BorrowSpread = s
	return p, nil
}

// BorrowRate returns the annualized borrow rate for a reference rate.
func (p Params) BorrowRate(reference float64) float64 {
	return reference + p.BorrowSpread
}
