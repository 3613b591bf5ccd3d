// Package journal persists completed runs: a directory of CSV files or a
// SQLite database, plus an Org-mode report.
package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/metrics"
	"github.com/rustyeddy/marginsim/sim"
)

// Run is the header row of a recorded run.
type Run struct {
	RunID       string
	Created     time.Time
	Account     string
	Leverage    float64
	Maintenance float64
	Spread      float64
	Mode        string
	Policy      string
	Capital     float64
	Start       time.Time
	End         time.Time
	Dataset     string
}

// Journal receives one run at a time. Rows for a run may arrive in any
// order after RecordRun.
type Journal interface {
	RecordRun(Run, metrics.RunMetrics) error
	RecordDay(runID string, r sim.DailyRecord) error
	RecordRound(runID string, r sim.Round) error
	RecordRebalance(runID string, e sim.RebalanceEvent) error
	Close() error
}

// Flusher is implemented by journals that buffer writes.
type Flusher interface {
	Flush() error
}

// RunFrom builds the header row for a result.
func RunFrom(res backtest.Result, dataset string) Run {
	return Run{
		RunID:       res.RunID,
		Created:     res.Created,
		Account:     string(res.Params.AccountType),
		Leverage:    res.Params.Leverage,
		Maintenance: res.Params.MaintenanceMargin,
		Spread:      res.Params.BorrowSpread,
		Mode:        string(res.Request.Mode),
		Policy:      res.Policy,
		Capital:     res.Request.Capital,
		Start:       res.Start,
		End:         res.End,
		Dataset:     dataset,
	}
}

// Rollbacker is implemented by journals that can discard the writes of a
// run that failed partway.
type Rollbacker interface {
	Rollback() error
}

// Write records a whole result: the run, every day, round and rebalance.
// When recording fails and j is a Rollbacker, the partial run is discarded
// so a later Close cannot commit it.
func Write(j Journal, res backtest.Result, dataset string) error {
	err := write(j, res, dataset)
	if err == nil {
		return nil
	}
	if rb, ok := j.(Rollbacker); ok {
		if rerr := rb.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
	}
	return err
}

func write(j Journal, res backtest.Result, dataset string) error {
	if err := j.RecordRun(RunFrom(res, dataset), res.Metrics); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	for _, d := range res.Ledger.Records {
		if err := j.RecordDay(res.RunID, d); err != nil {
			return fmt.Errorf("record day %s: %w", d.Date.Format("2006-01-02"), err)
		}
	}
	for _, r := range res.Ledger.Rounds {
		if err := j.RecordRound(res.RunID, r); err != nil {
			return fmt.Errorf("record round %d: %w", r.Number, err)
		}
	}
	for _, e := range res.Ledger.Rebalances {
		if err := j.RecordRebalance(res.RunID, e); err != nil {
			return fmt.Errorf("record rebalance %s: %w", e.Date.Format("2006-01-02"), err)
		}
	}
	if f, ok := j.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
