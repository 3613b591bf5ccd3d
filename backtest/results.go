package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/marginsim/market"
)

func usd(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// PrintResult writes a human readable summary of a run.
func PrintResult(w io.Writer, r Result) {
	m := r.Metrics

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Margin Simulation")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "Account:       %s (max %.1fx, maintenance %.0f%%)\n",
		r.Params.AccountType, r.Params.MaxLeverage, r.Params.MaintenanceMargin*100)
	fmt.Fprintf(w, "Leverage:      %.2fx\n", r.Params.Leverage)
	fmt.Fprintf(w, "Mode:          %s (%s)\n", r.Request.Mode, r.Policy)
	if r.Cached {
		fmt.Fprintln(w, "Cached:        yes")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(market.DateLayout))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(market.DateLayout))
	fmt.Fprintf(w, "Trading Days:  %d (%.2f years)\n", m.TradingDays, m.Years)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Initial:       %s\n", usd(m.InitialEquity))
	fmt.Fprintf(w, "Deployed:      %s\n", usd(m.TotalCapitalDeployed))
	fmt.Fprintf(w, "Final:         %s\n", usd(m.FinalEquity))
	fmt.Fprintf(w, "Return:        %.2f%%\n", m.TotalReturnPct)
	fmt.Fprintf(w, "CAGR:          %.2f%%\n", m.CAGRPct)
	fmt.Fprintf(w, "Volatility:    %.2f%%\n", m.AnnualVolatilityPct)
	fmt.Fprintf(w, "Sharpe:        %.2f\n", m.Sharpe)
	fmt.Fprintf(w, "Sortino:       %.2f\n", m.Sortino)
	fmt.Fprintf(w, "Calmar:        %.2f\n", m.Calmar)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%% (%d days)\n", m.MaxDrawdownPct, m.MaxDrawdownDays)
	fmt.Fprintf(w, "In Market:     %.1f%%\n", m.TimeInMarketPct)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Liquidations")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Rounds:        %d\n", m.Rounds)
	fmt.Fprintf(w, "Margin Calls:  %d\n", m.Liquidations)
	if m.Liquidations > 0 {
		fmt.Fprintf(w, "Call Rate:     %.1f%% of rounds\n", m.LiquidationRatePct)
		fmt.Fprintf(w, "Avg Loss:      %.2f%%\n", m.AvgLossPct)
		fmt.Fprintf(w, "Worst Loss:    %.2f%%\n", m.WorstLossPct)
	}
	if m.AvgDaysBetweenLiquidations > 0 {
		fmt.Fprintf(w, "Days Between:  %.1f\n", m.AvgDaysBetweenLiquidations)
	}
	fmt.Fprintf(w, "Avg Survival:  %.1f days\n", m.AvgDaysSurvived)
	fmt.Fprintf(w, "Success Rate:  %.1f%%\n", m.SuccessRatePct)
	if m.Rebalances > 0 {
		fmt.Fprintf(w, "Rebalances:    %d\n", m.Rebalances)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Carry")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Interest:      %s\n", usd(m.TotalInterest))
	fmt.Fprintf(w, "Dividends:     %s\n", usd(m.TotalDividends))
	fmt.Fprintf(w, "Net Carry:     %s\n", usd(m.NetCarry))

	if len(r.Ledger.Rounds) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Rounds")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, rd := range r.Ledger.Rounds {
			fmt.Fprintf(w, "#%-3d %s .. %s  %4dd  %12s -> %12s  %7.2f%%  %s\n",
				rd.Number,
				rd.StartDate.Format(market.DateLayout),
				rd.EndDate.Format(market.DateLayout),
				rd.DaysHeld,
				usd(rd.CapitalDeployed),
				usd(rd.FinalValue),
				rd.ReturnPct(),
				rd.Outcome,
			)
		}
	}

	fmt.Fprintln(w)
}
