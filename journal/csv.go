package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/marginsim/metrics"
	"github.com/rustyeddy/marginsim/sim"
)

// CSV file names written by NewCSV.
const (
	DaysFile       = "days.csv"
	RoundsFile     = "rounds.csv"
	RebalancesFile = "rebalances.csv"
	SummaryFile    = "summary.csv"
)

var (
	daysHeader = []string{"run_id", "date", "price", "status", "round", "shares", "portfolio_value", "margin_loan",
		"equity", "maintenance_required", "is_margin_call", "margin_call_price", "cushion", "cushion_pct",
		"interest", "dividend", "liquidation_value", "remaining_wait_days", "reference_rate", "borrow_rate"}
	roundsHeader = []string{"run_id", "number", "start_date", "end_date", "days_held", "start_price", "end_price",
		"capital_deployed", "final_value", "outcome", "profit_loss", "return_pct", "interest_paid",
		"dividends_received", "rebalances"}
	rebalancesHeader = []string{"run_id", "date", "round", "price", "growth_trigger_pct", "shares_added", "borrowed",
		"transaction_cost", "leverage_before", "leverage_after", "portfolio_after"}
	summaryHeader = []string{"run_id", "field", "value"}
)

type csvFile struct {
	f *os.File
	w *csv.Writer
}

// CSVJournal writes one file per table into a directory.
type CSVJournal struct {
	days, rounds, rebalances, summary csvFile
}

// NewCSV creates dir if needed and truncates the four files in it.
func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	j := &CSVJournal{}
	files := []struct {
		dst    *csvFile
		name   string
		header []string
	}{
		{&j.days, DaysFile, daysHeader},
		{&j.rounds, RoundsFile, roundsHeader},
		{&j.rebalances, RebalancesFile, rebalancesHeader},
		{&j.summary, SummaryFile, summaryHeader},
	}
	for _, tbl := range files {
		f, err := os.Create(filepath.Join(dir, tbl.name))
		if err != nil {
			_ = j.Close()
			return nil, err
		}
		*tbl.dst = csvFile{f: f, w: csv.NewWriter(f)}
		if err := tbl.dst.w.Write(tbl.header); err != nil {
			_ = j.Close()
			return nil, err
		}
	}
	return j, nil
}

func (j *CSVJournal) RecordRun(r Run, m metrics.RunMetrics) error {
	w := j.summary.w
	fields := [][2]string{
		{"created", r.Created.Format(time.RFC3339)},
		{"account", r.Account},
		{"leverage", f(r.Leverage)},
		{"maintenance", f(r.Maintenance)},
		{"spread", f(r.Spread)},
		{"mode", r.Mode},
		{"policy", r.Policy},
		{"capital", usd(r.Capital)},
		{"start_date", day(r.Start)},
		{"end_date", day(r.End)},
		{"dataset", r.Dataset},
	}
	for _, kv := range fields {
		if err := w.Write([]string{r.RunID, kv[0], kv[1]}); err != nil {
			return err
		}
	}
	values := m.Map()
	for _, k := range metrics.Keys() {
		if err := w.Write([]string{r.RunID, k, f(values[k])}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordDay(runID string, d sim.DailyRecord) error {
	return j.days.w.Write([]string{
		runID,
		day(d.Date),
		f(d.Price),
		string(d.Status),
		strconv.Itoa(d.Round),
		f(d.SharesHeld),
		usd(d.PortfolioValue),
		usd(d.MarginLoan),
		usd(d.Equity),
		usd(d.MaintenanceRequired),
		strconv.FormatBool(d.IsMarginCall),
		f(d.MarginCallPrice),
		usd(d.Cushion),
		f(d.CushionPct),
		usd(d.DailyInterestCost),
		usd(d.DividendReceived),
		usd(d.LiquidationValue),
		strconv.Itoa(d.RemainingWaitDays),
		f(d.ReferenceRate),
		f(d.BorrowRate),
	})
}

func (j *CSVJournal) RecordRound(runID string, r sim.Round) error {
	return j.rounds.w.Write([]string{
		runID,
		strconv.Itoa(r.Number),
		day(r.StartDate),
		day(r.EndDate),
		strconv.Itoa(r.DaysHeld),
		f(r.StartPrice),
		f(r.EndPrice),
		usd(r.CapitalDeployed),
		usd(r.FinalValue),
		string(r.Outcome),
		usd(r.ProfitLoss()),
		f(r.ReturnPct()),
		usd(r.InterestPaid),
		usd(r.DividendsReceived),
		strconv.Itoa(r.Rebalances),
	})
}

func (j *CSVJournal) RecordRebalance(runID string, e sim.RebalanceEvent) error {
	return j.rebalances.w.Write([]string{
		runID,
		day(e.Date),
		strconv.Itoa(e.Round),
		f(e.Price),
		f(e.GrowthTriggerPct),
		f(e.SharesAdded),
		usd(e.Borrowed),
		usd(e.TransactionCost),
		f(e.LeverageBefore),
		f(e.LeverageAfter),
		usd(e.PortfolioAfter),
	})
}

// Flush pushes buffered rows to disk.
func (j *CSVJournal) Flush() error {
	for _, c := range j.files() {
		c.w.Flush()
		if err := c.w.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (j *CSVJournal) Close() error {
	var first error
	for _, c := range j.files() {
		c.w.Flush()
		if err := c.w.Error(); err != nil && first == nil {
			first = err
		}
		if err := c.f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (j *CSVJournal) files() []csvFile {
	var out []csvFile
	for _, c := range []csvFile{j.days, j.rounds, j.rebalances, j.summary} {
		if c.f != nil {
			out = append(out, c)
		}
	}
	return out
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func usd(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(2)
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}
