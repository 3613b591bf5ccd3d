package sim

import "time"

// RebalanceInput is the post-accrual state offered to a Rebalancer before
// the margin check runs.
type RebalanceInput struct {
	Date           time.Time
	Price          float64
	Round          int
	Position       Position
	PortfolioValue float64
	Equity         float64
	TargetLeverage float64
	// Anchor is the portfolio value at entry or at the last rebalance.
	Anchor float64
}

// Rebalancer may replace the position on an active, non-entry day.
// Returning ok=false leaves the position untouched.
type Rebalancer interface {
	Rebalance(in RebalanceInput) (pos Position, ev RebalanceEvent, ok bool, err error)
}
