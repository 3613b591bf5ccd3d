package sim

import (
	"fmt"
	"time"
)

// RoundRecorder accumulates the open round and keeps the closed ones.
type RoundRecorder struct {
	closed []Round
	cur    Round
	open   bool
}

// Open starts round n. It is an error to open over an unclosed round.
func (rr *RoundRecorder) Open(date time.Time, price, capital float64) (int, error) {
	if rr.open {
		return 0, fmt.Errorf("round %d is still open", rr.cur.Number)
	}
	rr.cur = Round{
		Number:          len(rr.closed) + 1,
		StartDate:       date,
		StartPrice:      price,
		CapitalDeployed: capital,
	}
	rr.open = true
	return rr.cur.Number, nil
}

// Observe counts one held day and its carrying costs.
func (rr *RoundRecorder) Observe(interest, dividend float64, rebalanced bool) {
	if !rr.open {
		return
	}
	rr.cur.DaysHeld++
	rr.cur.InterestPaid += interest
	rr.cur.DividendsReceived += dividend
	if rebalanced {
		rr.cur.Rebalances++
	}
}

// Close finalizes the open round.
func (rr *RoundRecorder) Close(date time.Time, price, finalValue float64, outcome Outcome) (Round, error) {
	if !rr.open {
		return Round{}, fmt.Errorf("no open round to close")
	}
	r := rr.cur
	r.EndDate = date
	r.EndPrice = price
	r.FinalValue = finalValue
	r.Outcome = outcome
	rr.closed = append(rr.closed, r)
	rr.cur = Round{}
	rr.open = false
	return r, nil
}

func (rr *RoundRecorder) IsOpen() bool { return rr.open }

// Current returns the open round number, or 0.
func (rr *RoundRecorder) Current() int {
	if !rr.open {
		return 0
	}
	return rr.cur.Number
}

// Rounds returns a copy of the closed rounds.
func (rr *RoundRecorder) Rounds() []Round {
	out := make([]Round, len(rr.closed))
	copy(out, rr.closed)
	return out
}
