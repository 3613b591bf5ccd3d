package journal

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/marginsim/sim"
)

// GetRun returns a run's header and its metrics keyed as metrics.Keys.
func (j *SQLite) GetRun(runID string) (Run, map[string]float64, error) {
	if err := j.Flush(); err != nil {
		return Run{}, nil, err
	}

	var r Run
	err := j.db.QueryRow(`
		SELECT run_id, created, account, leverage, maintenance, spread, mode, policy, capital, start_date, end_date, dataset
		FROM runs
		WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Created, &r.Account, &r.Leverage, &r.Maintenance, &r.Spread,
		&r.Mode, &r.Policy, &r.Capital, &r.Start, &r.End, &r.Dataset,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, nil, fmt.Errorf("run %q not found", runID)
		}
		return Run{}, nil, err
	}

	rows, err := j.db.Query(`SELECT name, value FROM run_metrics WHERE run_id = ?`, runID)
	if err != nil {
		return Run{}, nil, err
	}
	defer rows.Close()

	m := map[string]float64{}
	for rows.Next() {
		var (
			name  string
			value float64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return Run{}, nil, err
		}
		m[name] = value
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, err
	}
	return r, m, nil
}

// ListRuns returns every run header, oldest first.
func (j *SQLite) ListRuns() ([]Run, error) {
	if err := j.Flush(); err != nil {
		return nil, err
	}

	rows, err := j.db.Query(`
		SELECT run_id, created, account, leverage, maintenance, spread, mode, policy, capital, start_date, end_date, dataset
		FROM runs
		ORDER BY run_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.RunID, &r.Created, &r.Account, &r.Leverage, &r.Maintenance, &r.Spread,
			&r.Mode, &r.Policy, &r.Capital, &r.Start, &r.End, &r.Dataset,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListDays returns a run's ledger in date order.
func (j *SQLite) ListDays(runID string) ([]sim.DailyRecord, error) {
	if err := j.Flush(); err != nil {
		return nil, err
	}

	rows, err := j.db.Query(`
		SELECT date, price, status, round, shares, portfolio_value, margin_loan, equity,
		       maintenance_required, is_margin_call, margin_call_price, cushion, cushion_pct,
		       interest, dividend, liquidation_value, remaining_wait_days, reference_rate, borrow_rate
		FROM days
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.DailyRecord
	for rows.Next() {
		var (
			d      sim.DailyRecord
			status string
		)
		if err := rows.Scan(
			&d.Date, &d.Price, &status, &d.Round, &d.SharesHeld, &d.PortfolioValue, &d.MarginLoan, &d.Equity,
			&d.MaintenanceRequired, &d.IsMarginCall, &d.MarginCallPrice, &d.Cushion, &d.CushionPct,
			&d.DailyInterestCost, &d.DividendReceived, &d.LiquidationValue, &d.RemainingWaitDays,
			&d.ReferenceRate, &d.BorrowRate,
		); err != nil {
			return nil, err
		}
		d.Status = sim.Status(status)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListRounds returns a run's rounds in order.
func (j *SQLite) ListRounds(runID string) ([]sim.Round, error) {
	if err := j.Flush(); err != nil {
		return nil, err
	}

	rows, err := j.db.Query(`
		SELECT number, start_date, end_date, days_held, start_price, end_price, capital_deployed,
		       final_value, outcome, interest_paid, dividends_received, rebalances
		FROM rounds
		WHERE run_id = ?
		ORDER BY number ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.Round
	for rows.Next() {
		var (
			r       sim.Round
			outcome string
		)
		if err := rows.Scan(
			&r.Number, &r.StartDate, &r.EndDate, &r.DaysHeld, &r.StartPrice, &r.EndPrice, &r.CapitalDeployed,
			&r.FinalValue, &outcome, &r.InterestPaid, &r.DividendsReceived, &r.Rebalances,
		); err != nil {
			return nil, err
		}
		r.Outcome = sim.Outcome(outcome)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRebalances returns a run's rebalance events in date order.
func (j *SQLite) ListRebalances(runID string) ([]sim.RebalanceEvent, error) {
	if err := j.Flush(); err != nil {
		return nil, err
	}

	rows, err := j.db.Query(`
		SELECT date, round, price, growth_trigger_pct, shares_added, borrowed, transaction_cost,
		       leverage_before, leverage_after, portfolio_after
		FROM rebalances
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.RebalanceEvent
	for rows.Next() {
		var e sim.RebalanceEvent
		if err := rows.Scan(
			&e.Date, &e.Round, &e.Price, &e.GrowthTriggerPct, &e.SharesAdded, &e.Borrowed, &e.TransactionCost,
			&e.LeverageBefore, &e.LeverageAfter, &e.PortfolioAfter,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
