package market

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(n int, start time.Time) []DailyObservation {
	out := make([]DailyObservation, n)
	for i := range out {
		out[i] = DailyObservation{
			Date:          start.AddDate(0, 0, i),
			Price:         100,
			ReferenceRate: 5,
			BorrowRate:    6.5,
		}
	}
	return out
}

func TestNewSeries(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)
	s, err := NewSeries(rows(12, start))
	require.NoError(t, err)

	assert.Equal(t, 12, s.Len())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s.Start())
	assert.Equal(t, time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), s.End())
}

func TestNewSeriesDropsMissingRows(t *testing.T) {
	t.Parallel()

	in := rows(12, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	in[3].Price = math.NaN()
	in[7].ReferenceRate = math.NaN()

	s, err := NewSeries(in)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Len())
}

func TestNewSeriesInsufficientData(t *testing.T) {
	t.Parallel()

	in := rows(10, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	in[0].BorrowRate = math.NaN()

	_, err := NewSeries(in)
	var ide *InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, 9, ide.Rows)
	assert.Equal(t, MinObservations, ide.Required)
}

func TestNewSeriesRejectsOrdering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func([]DailyObservation)
	}{
		{
			name:   "duplicate date",
			mutate: func(in []DailyObservation) { in[5].Date = in[4].Date.Add(3 * time.Hour) },
		},
		{
			name:   "out of order",
			mutate: func(in []DailyObservation) { in[5], in[6] = in[6], in[5] },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := rows(12, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			tt.mutate(in)

			_, err := NewSeries(in)
			var soe *SeriesOrderError
			assert.True(t, errors.As(err, &soe))
		})
	}
}

func TestNewSeriesRejectsBadDividend(t *testing.T) {
	t.Parallel()

	for _, div := range []float64{-0.25, math.NaN(), math.Inf(1)} {
		in := rows(12, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		in[4].Dividend = div

		_, err := NewSeries(in)
		var ipe *InvalidParameterError
		require.True(t, errors.As(err, &ipe), "dividend %g", div)
		assert.Equal(t, "dividend", ipe.Field)
		assert.Contains(t, err.Error(), "2024-01-05")
	}

	in := rows(12, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	in[4].Dividend = 0.4
	s, err := NewSeries(in)
	require.NoError(t, err)
	assert.Equal(t, 0.4, s.At(4).Dividend)
}

func TestObservationsIsACopy(t *testing.T) {
	t.Parallel()

	s, err := NewSeries(rows(10, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	obs := s.Observations()
	obs[0].Price = -1
	assert.Equal(t, 100.0, s.At(0).Price)
}

func TestParseAccountType(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]AccountType{
		"reg_t":     RegT,
		"Reg-T":     RegT,
		"portfolio": PortfolioMargin,
		" PM ":      PortfolioMargin,
	} {
		got, err := ParseAccountType(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAccountType("cash")
	assert.Error(t, err)
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "invalid parameter leverage: must be >= 1", InvalidParam("leverage", "must be >= %d", 1).Error())
	assert.Equal(t, "duplicate date 2024-03-01", (&SeriesOrderError{Prev: d, Date: d}).Error())
	assert.Contains(t, (&ArithmeticGuardError{Date: d, Reason: "price <= 0"}).Error(), "2024-03-01")
}
