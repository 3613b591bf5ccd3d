package journal

import (
	"bytes"
	"os"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/metrics"
	"github.com/rustyeddy/marginsim/sim"
)

type orgReport struct {
	Run        Run
	Metrics    metrics.RunMetrics
	Rounds     []sim.Round
	Rebalances []sim.RebalanceEvent
}

var orgFuncs = template.FuncMap{
	"usd": func(x float64) string { return decimal.NewFromFloat(x).StringFixed(2) },
	"pct": func(x float64) string { return decimal.NewFromFloat(x).StringFixed(2) },
	"mul100": func(x float64) float64 {
		return x * 100.0
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var orgTmpl = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// FormatOrg renders a run as an Org-mode entry.
func FormatOrg(res backtest.Result, dataset string) (string, error) {
	buf := new(bytes.Buffer)
	err := orgTmpl.Execute(buf, orgReport{
		Run:        RunFrom(res, dataset),
		Metrics:    res.Metrics,
		Rounds:     res.Ledger.Rounds,
		Rebalances: res.Ledger.Rebalances,
	})
	return buf.String(), err
}

// WriteOrg renders a run and writes it to path.
func WriteOrg(path string, res backtest.Result, dataset string) error {
	s, err := FormatOrg(res, dataset)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}

const RunOrgTemplate = `
* MARGIN SIM: {{.Run.Mode}} {{.Run.Account}} {{printf "%.2f" .Run.Leverage}}x
:PROPERTIES:
:RUN_ID:       {{.Run.RunID}}
:ACCOUNT:      {{.Run.Account}}
:LEVERAGE:     {{printf "%.2f" .Run.Leverage}}
:MAINTENANCE:  {{printf "%.2f" (mul100 .Run.Maintenance)}}
:SPREAD:       {{printf "%.2f" .Run.Spread}}
:MODE:         {{.Run.Mode}}
:POLICY:       {{.Run.Policy}}
:DATASET:      {{if .Run.Dataset}}{{.Run.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:   {{.Run.Start.Format "2006-01-02"}}
:END_DATE:     {{.Run.End.Format "2006-01-02"}}
:CAPITAL:      {{usd .Run.Capital}}
:FINAL_EQUITY: {{usd .Metrics.FinalEquity}}
:CAGR_PCT:     {{pct .Metrics.CAGRPct}}
:MAX_DD_PCT:   {{pct .Metrics.MaxDrawdownPct}}
:MARGIN_CALLS: {{.Metrics.Liquidations}}
:CREATED:      [{{(orTime .Run.Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
| Metric            | Value |
|-------------------+-------|
| Capital deployed  | {{usd .Metrics.TotalCapitalDeployed}} |
| Final equity      | {{usd .Metrics.FinalEquity}} |
| Total return %    | {{pct .Metrics.TotalReturnPct}} |
| CAGR %            | {{pct .Metrics.CAGRPct}} |
| Volatility %      | {{pct .Metrics.AnnualVolatilityPct}} |
| Sharpe            | {{printf "%.2f" .Metrics.Sharpe}} |
| Sortino           | {{printf "%.2f" .Metrics.Sortino}} |
| Calmar            | {{printf "%.2f" .Metrics.Calmar}} |
| Max drawdown %    | {{pct .Metrics.MaxDrawdownPct}} |
| Drawdown days     | {{.Metrics.MaxDrawdownDays}} |
| Time in market %  | {{pct .Metrics.TimeInMarketPct}} |

** Carry
- Interest paid:      *{{usd .Metrics.TotalInterest}}*
- Dividends received: *{{usd .Metrics.TotalDividends}}*
- Net carry:          *{{usd .Metrics.NetCarry}}*

** Rounds
| # | Start | End | Days | Capital | Final | Return % | Outcome |
|---+-------+-----+------+---------+-------+----------+---------|
{{- range .Rounds }}
| {{.Number}} | {{.StartDate.Format "2006-01-02"}} | {{.EndDate.Format "2006-01-02"}} | {{.DaysHeld}} | {{usd .CapitalDeployed}} | {{usd .FinalValue}} | {{pct .ReturnPct}} | {{.Outcome}} |
{{- end }}

{{- if .Rebalances }}

** Rebalances
| Date | Round | Growth % | Shares added | Cost | Lev before | Lev after |
|------+-------+----------+--------------+------+------------+-----------|
{{- range .Rebalances }}
| {{.Date.Format "2006-01-02"}} | {{.Round}} | {{pct .GrowthTriggerPct}} | {{printf "%.4f" .SharesAdded}} | {{usd .TransactionCost}} | {{printf "%.2f" .LeverageBefore}} | {{printf "%.2f" .LeverageAfter}} |
{{- end }}
{{- end }}
`
