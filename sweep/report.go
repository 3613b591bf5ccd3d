package sweep

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// PrintReport writes one line per point followed by any failures.
func PrintReport(w io.Writer, r Report) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Sweep: %s\n", r.Parameter)
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "%12s %14s %9s %9s %8s %6s %6s\n",
		"value", "final", "cagr%", "maxdd%", "sharpe", "calls", "rebal")
	for _, p := range r.Points {
		m := p.Result.Metrics
		fmt.Fprintf(w, "%12.4g %14s %9.2f %9.2f %8.2f %6d %6d\n",
			p.Value,
			decimal.NewFromFloat(m.FinalEquity).StringFixed(2),
			m.CAGRPct,
			m.MaxDrawdownPct,
			m.Sharpe,
			m.Liquidations,
			m.Rebalances,
		)
	}
	if len(r.Failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failed")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, f := range r.Failed {
			fmt.Fprintf(w, "%12.4g %v\n", f.Value, f.Err)
		}
	}
	fmt.Fprintln(w)
}
