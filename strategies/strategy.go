package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/marginsim/sim"
)

// Mode names one way of running the position lifecycle.
type Mode string

const (
	ModeReentry         Mode = "liquidation_reentry"
	ModeFreshCapital    Mode = "fresh_capital"
	ModeProfitThreshold Mode = "profit_threshold"
)

// Modes lists the supported modes in display order.
func Modes() []Mode {
	return []Mode{ModeReentry, ModeFreshCapital, ModeProfitThreshold}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "liquidation_reentry", "liquidation-reentry", "reentry":
		return ModeReentry, nil
	case "fresh_capital", "fresh-capital", "fresh":
		return ModeFreshCapital, nil
	case "profit_threshold", "profit-threshold", "threshold":
		return ModeProfitThreshold, nil
	default:
		return "", fmt.Errorf("unknown mode %q (supported: liquidation_reentry, fresh_capital, profit_threshold)", s)
	}
}

// Options carries the knobs individual modes read.
type Options struct {
	FreshBasis         sim.FreshBasis
	ProfitThresholdPct float64
	TransactionCostBps float64
}

// Build returns the reentry policy and optional rebalancer for a mode.
func Build(mode Mode, opts Options) (sim.ReentryPolicy, sim.Rebalancer, error) {
	switch mode {
	case ModeReentry:
		return sim.CarryForward{}, nil, nil
	case ModeFreshCapital:
		return sim.FreshCapital{Basis: opts.FreshBasis}, nil, nil
	case ModeProfitThreshold:
		pt, err := NewProfitThreshold(opts.ProfitThresholdPct, opts.TransactionCostBps)
		if err != nil {
			return nil, nil, err
		}
		return sim.CarryForward{}, pt, nil
	default:
		return nil, nil, fmt.Errorf("unknown mode %q", mode)
	}
}
