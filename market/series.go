package market

import (
	"math"
	"time"
)

// MinObservations is the fewest valid rows a run will accept.
const MinObservations = 10

// Series is an ordered, immutable sequence of daily observations.
// The zero value is empty.
type Series struct {
	obs []DailyObservation
}

// NewSeries drops rows with a missing price or rate, truncates dates to
// calendar days and rejects duplicate or out-of-order dates. A negative or
// non-finite dividend is an *InvalidParameterError. Fewer than
// MinObservations surviving rows is an *InsufficientDataError.
func NewSeries(rows []DailyObservation) (Series, error) {
	obs := make([]DailyObservation, 0, len(rows))
	for _, r := range rows {
		if r.Missing() {
			continue
		}
		r.Date = Day(r.Date)
		if r.Dividend < 0 || math.IsNaN(r.Dividend) || math.IsInf(r.Dividend, 0) {
			return Series{}, InvalidParam("dividend", "%s: %g must be a finite non-negative amount", r.Date.Format(DateLayout), r.Dividend)
		}
		if n := len(obs); n > 0 && !r.Date.After(obs[n-1].Date) {
			return Series{}, &SeriesOrderError{Prev: obs[n-1].Date, Date: r.Date}
		}
		obs = append(obs, r)
	}
	if len(obs) < MinObservations {
		return Series{}, &InsufficientDataError{Rows: len(obs), Required: MinObservations}
	}
	return Series{obs: obs}, nil
}

func (s Series) Len() int { return len(s.obs) }

// At returns the i-th observation by value.
func (s Series) At(i int) DailyObservation { return s.obs[i] }

func (s Series) Start() time.Time {
	if len(s.obs) == 0 {
		return time.Time{}
	}
	return s.obs[0].Date
}

func (s Series) End() time.Time {
	if len(s.obs) == 0 {
		return time.Time{}
	}
	return s.obs[len(s.obs)-1].Date
}

// Observations returns a copy of the underlying rows.
func (s Series) Observations() []DailyObservation {
	out := make([]DailyObservation, len(s.obs))
	copy(out, s.obs)
	return out
}
