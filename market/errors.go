package market

import (
	"fmt"
	"time"
)

// InvalidParameterError rejects a request before any simulation work starts.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

// InvalidParam is shorthand for building an *InvalidParameterError.
func InvalidParam(field, format string, args ...any) error {
	return &InvalidParameterError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InsufficientDataError reports how many usable rows survived filtering.
type InsufficientDataError struct {
	Rows     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d valid rows, need at least %d", e.Rows, e.Required)
}

// ArithmeticGuardError aborts a run that would otherwise write NaN or Inf
// values into the ledger.
type ArithmeticGuardError struct {
	Date   time.Time
	Reason string
}

func (e *ArithmeticGuardError) Error() string {
	if e.Date.IsZero() {
		return "arithmetic guard: " + e.Reason
	}
	return fmt.Sprintf("arithmetic guard on %s: %s", e.Date.Format(DateLayout), e.Reason)
}

// SeriesOrderError rejects duplicate or out-of-order dates.
type SeriesOrderError struct {
	Prev time.Time
	Date time.Time
}

func (e *SeriesOrderError) Error() string {
	if e.Prev.Equal(e.Date) {
		return fmt.Sprintf("duplicate date %s", e.Date.Format(DateLayout))
	}
	return fmt.Sprintf("date %s is out of order (follows %s)",
		e.Date.Format(DateLayout), e.Prev.Format(DateLayout))
}
