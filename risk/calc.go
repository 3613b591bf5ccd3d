package risk

import (
	"math"

	"github.com/rustyeddy/marginsim/market"
)

// CallPrice is the price at which a position with the given loan and share
// count would reach its maintenance requirement:
//
//	P_call = loan / (shares * (1 - maintenance))
func CallPrice(loan, shares, maintenance float64) (float64, error) {
	denom := shares * (1 - maintenance)
	if denom == 0 || math.IsNaN(denom) {
		return 0, &market.ArithmeticGuardError{Reason: "margin-call price undefined for zero shares or 100% maintenance"}
	}
	return loan / denom, nil
}

// Cushion returns the equity held above the maintenance requirement, as an
// amount and as a fraction of position value.
func Cushion(equity, positionValue, maintenance float64) (amount, pct float64) {
	amount = equity - positionValue*maintenance
	if positionValue > 0 {
		pct = amount / positionValue
	}
	return amount, pct
}

// Leverage is position value per unit of equity.
func Leverage(positionValue, equity float64) (float64, error) {
	if equity <= 0 {
		return 0, &market.ArithmeticGuardError{Reason: "leverage undefined for non-positive equity"}
	}
	return positionValue / equity, nil
}

// BreachesMaintenance is the margin-call test. The boundary is not a breach.
func BreachesMaintenance(equity, positionValue, maintenance float64) bool {
	return equity < positionValue*maintenance
}
