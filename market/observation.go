package market

import (
	"math"
	"time"
)

// DateLayout is the calendar layout used for daily observations.
const DateLayout = "2006-01-02"

// DailyObservation is one row of the historical daily series.
// Rates are annualized percentages (5.25 means 5.25%).
type DailyObservation struct {
	Date          time.Time
	Price         float64
	Dividend      float64 // per share, paid on Date
	ReferenceRate float64
	BorrowRate    float64
}

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Missing reports whether the row lacks a price or a rate and must be
// dropped before simulation.
func (o DailyObservation) Missing() bool {
	return isMissing(o.Price) || isMissing(o.ReferenceRate) || isMissing(o.BorrowRate)
}

func isMissing(x float64) bool {
	return math.IsNaN(x) || math.IsInf(x, 0)
}

// BorrowFraction is the daily accrual basis: the annual borrow rate as a fraction.
func (o DailyObservation) BorrowFraction() float64 {
	return o.BorrowRate / 100.0
}
