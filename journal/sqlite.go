package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/marginsim/metrics"
	"github.com/rustyeddy/marginsim/sim"
)

// SQLite stores runs in a database file. Writes are batched in a
// transaction that Flush, Close and every query commit.
type SQLite struct {
	db *sql.DB
	tx *sql.Tx
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) exec(query string, args ...any) error {
	if j.tx == nil {
		tx, err := j.db.Begin()
		if err != nil {
			return err
		}
		j.tx = tx
	}
	_, err := j.tx.Exec(query, args...)
	return err
}

func (j *SQLite) RecordRun(r Run, m metrics.RunMetrics) error {
	err := j.exec(`
		INSERT INTO runs
		(run_id, created, account, leverage, maintenance, spread, mode, policy, capital, start_date, end_date, dataset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Account, r.Leverage, r.Maintenance, r.Spread,
		r.Mode, r.Policy, r.Capital, r.Start, r.End, r.Dataset,
	)
	if err != nil {
		return err
	}
	values := m.Map()
	for _, k := range metrics.Keys() {
		if err := j.exec(`INSERT INTO run_metrics (run_id, name, value) VALUES (?, ?, ?)`, r.RunID, k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

func (j *SQLite) RecordDay(runID string, d sim.DailyRecord) error {
	return j.exec(`
		INSERT INTO days
		(run_id, date, price, status, round, shares, portfolio_value, margin_loan, equity,
		 maintenance_required, is_margin_call, margin_call_price, cushion, cushion_pct,
		 interest, dividend, liquidation_value, remaining_wait_days, reference_rate, borrow_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, d.Date, d.Price, string(d.Status), d.Round, d.SharesHeld, d.PortfolioValue, d.MarginLoan, d.Equity,
		d.MaintenanceRequired, d.IsMarginCall, d.MarginCallPrice, d.Cushion, d.CushionPct,
		d.DailyInterestCost, d.DividendReceived, d.LiquidationValue, d.RemainingWaitDays, d.ReferenceRate, d.BorrowRate,
	)
}

func (j *SQLite) RecordRound(runID string, r sim.Round) error {
	return j.exec(`
		INSERT INTO rounds
		(run_id, number, start_date, end_date, days_held, start_price, end_price, capital_deployed,
		 final_value, outcome, interest_paid, dividends_received, rebalances)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Number, r.StartDate, r.EndDate, r.DaysHeld, r.StartPrice, r.EndPrice, r.CapitalDeployed,
		r.FinalValue, string(r.Outcome), r.InterestPaid, r.DividendsReceived, r.Rebalances,
	)
}

func (j *SQLite) RecordRebalance(runID string, e sim.RebalanceEvent) error {
	return j.exec(`
		INSERT INTO rebalances
		(run_id, date, round, price, growth_trigger_pct, shares_added, borrowed, transaction_cost,
		 leverage_before, leverage_after, portfolio_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, e.Date, e.Round, e.Price, e.GrowthTriggerPct, e.SharesAdded, e.Borrowed, e.TransactionCost,
		e.LeverageBefore, e.LeverageAfter, e.PortfolioAfter,
	)
}

// Flush commits pending writes.
func (j *SQLite) Flush() error {
	if j.tx == nil {
		return nil
	}
	tx := j.tx
	j.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards pending writes.
func (j *SQLite) Rollback() error {
	if j.tx == nil {
		return nil
	}
	tx := j.tx
	j.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (j *SQLite) Close() error {
	if err := j.Flush(); err != nil {
		_ = j.db.Close()
		return err
	}
	return j.db.Close()
}
