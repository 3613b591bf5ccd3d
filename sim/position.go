package sim

import "time"

// Position is the open holding. It is a value: every change produces a new
// Position that replaces the engine's copy.
type Position struct {
	Shares     float64
	Loan       float64
	EntryDate  time.Time
	EntryPrice float64
}

// Open sizes a position so that exposure = equity * leverage, borrowing
// everything beyond equity.
func Open(equity, leverage, price float64, date time.Time) Position {
	exposure := equity * leverage
	return Position{
		Shares:     exposure / price,
		Loan:       exposure - equity,
		EntryDate:  date,
		EntryPrice: price,
	}
}

func (p Position) Value(price float64) float64 { return p.Shares * price }

func (p Position) Equity(price float64) float64 { return p.Value(price) - p.Loan }

// Accrue capitalizes a day's interest into the loan.
func (p Position) Accrue(interest float64) Position {
	p.Loan += interest
	return p
}

// Reinvest buys shares with cash at price.
func (p Position) Reinvest(cash, price float64) Position {
	p.Shares += cash / price
	return p
}

// Borrow buys shares worth notional with new debt plus fee.
func (p Position) Borrow(notional, fee, price float64) Position {
	p.Shares += notional / price
	p.Loan += notional + fee
	return p
}
