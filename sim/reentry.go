package sim

import (
	"fmt"
	"strings"
)

// ReentryPolicy decides how much equity a new round deploys. It is the only
// thing that differs between the liquidation-reentry and fresh-capital modes.
type ReentryPolicy interface {
	Name() string
	// InitialCapital is the equity deployed by the first round.
	InitialCapital(requested, leverage float64) float64
	// ReentryCapital is the equity deployed when a cooling-off period ends.
	ReentryCapital(liquidationValue, requested, leverage float64) float64
}

// CarryForward redeploys whatever the last liquidation left.
type CarryForward struct{}

func (CarryForward) Name() string { return "carry_forward" }

func (CarryForward) InitialCapital(requested, _ float64) float64 { return requested }

func (CarryForward) ReentryCapital(liquidationValue, _, _ float64) float64 {
	return liquidationValue
}

// FreshBasis is the size of the external top-up a FreshCapital policy uses.
type FreshBasis string

const (
	// BasisRequested restarts every round with the requested capital.
	BasisRequested FreshBasis = "requested"
	// BasisCashPerRound treats the request as total exposure and restarts
	// every round with requested / leverage.
	BasisCashPerRound FreshBasis = "cash_per_round"
)

func ParseFreshBasis(s string) (FreshBasis, error) {
	switch FreshBasis(strings.ToLower(strings.TrimSpace(s))) {
	case "", BasisRequested:
		return BasisRequested, nil
	case BasisCashPerRound:
		return BasisCashPerRound, nil
	default:
		return "", fmt.Errorf("unknown fresh capital basis %q (supported: requested, cash_per_round)", s)
	}
}

// FreshCapital simulates unlimited outside funding: each round starts from
// the same capital regardless of what the previous liquidation returned.
type FreshCapital struct {
	Basis FreshBasis
}

func (f FreshCapital) Name() string { return "fresh_capital/" + string(f.basis()) }

func (f FreshCapital) InitialCapital(requested, leverage float64) float64 {
	if f.basis() == BasisCashPerRound && leverage > 0 {
		return requested / leverage
	}
	return requested
}

func (f FreshCapital) ReentryCapital(_, requested, leverage float64) float64 {
	return f.InitialCapital(requested, leverage)
}

func (f FreshCapital) basis() FreshBasis {
	if f.Basis == "" {
		return BasisRequested
	}
	return f.Basis
}
