package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/risk"
)

const (
	// DefaultWaitDays is the cooling-off period after a forced liquidation.
	DefaultWaitDays = 2
	// DefaultMinReentryEquity halts the run once re-entry capital drops below it.
	DefaultMinReentryEquity = 1000.0
)

// Config parameterizes one run of the position lifecycle.
type Config struct {
	Capital          float64
	TargetLeverage   float64
	Maintenance      float64 // fraction of position value
	WaitDays         int
	MinReentryEquity float64

	Reentry    ReentryPolicy // nil means CarryForward
	Rebalancer Rebalancer    // optional
}

func (c Config) Validate() error {
	switch {
	case !(c.Capital > 0) || math.IsInf(c.Capital, 0):
		return market.InvalidParam("capital", "%.2f must be a positive amount", c.Capital)
	case !(c.TargetLeverage >= 1) || math.IsInf(c.TargetLeverage, 0):
		return market.InvalidParam("leverage", "%.4g must be >= 1.0", c.TargetLeverage)
	case !(c.Maintenance > 0 && c.Maintenance < 1):
		return market.InvalidParam("maintenance_margin", "%.4g must be in (0, 1)", c.Maintenance)
	case c.WaitDays < 0:
		return market.InvalidParam("wait_days", "%d must not be negative", c.WaitDays)
	case c.MinReentryEquity < 0 || math.IsNaN(c.MinReentryEquity):
		return market.InvalidParam("min_reentry_equity", "%.2f must not be negative", c.MinReentryEquity)
	}
	return nil
}

type phase int

const (
	phaseFlat phase = iota
	phaseWaiting
	phaseActive
	phaseHalted
)

// Engine steps a single position through entry, carry, liquidation,
// cooling-off and re-entry, one observation at a time. It is not safe for
// concurrent use; independent runs use independent engines.
type Engine struct {
	cfg Config

	phase    phase
	equity   float64
	pos      Position
	anchor   float64
	waitLeft int

	rounds  RoundRecorder
	records []DailyRecord
	events  []RebalanceEvent
	done    bool
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Reentry == nil {
		cfg.Reentry = CarryForward{}
	}
	equity := cfg.Reentry.InitialCapital(cfg.Capital, cfg.TargetLeverage)
	if !(equity > 0) {
		return nil, market.InvalidParam("capital", "policy %s deploys no initial capital", cfg.Reentry.Name())
	}
	return &Engine{cfg: cfg, equity: equity}, nil
}

// Run replays the whole series through a fresh engine.
func Run(cfg Config, series market.Series) (Ledger, error) {
	e, err := NewEngine(cfg)
	if err != nil {
		return Ledger{}, err
	}
	for i := 0; i < series.Len(); i++ {
		if err := e.Step(series.At(i)); err != nil {
			return Ledger{}, err
		}
	}
	return e.Finish()
}

// Step applies one observation. Observations must arrive in strictly
// increasing date order.
func (e *Engine) Step(obs market.DailyObservation) error {
	if e.done {
		return errors.New("sim: engine already finished")
	}
	if !(obs.Price > 0) || math.IsInf(obs.Price, 0) {
		return &market.ArithmeticGuardError{Date: obs.Date, Reason: fmt.Sprintf("price %v must be positive", obs.Price)}
	}
	if n := len(e.records); n > 0 && !obs.Date.After(e.records[n-1].Date) {
		return &market.SeriesOrderError{Prev: e.records[n-1].Date, Date: obs.Date}
	}

	var (
		rec DailyRecord
		err error
	)
	switch e.phase {
	case phaseWaiting:
		rec = e.wait(obs)
	case phaseHalted:
		rec = e.flatRecord(obs, StatusNoPosition)
	case phaseFlat:
		rec, err = e.hold(obs, true)
	case phaseActive:
		rec, err = e.hold(obs, false)
	}
	if err != nil {
		return err
	}
	if err := checkFinite(rec); err != nil {
		return err
	}
	e.records = append(e.records, rec)
	return nil
}

// Finish closes a round still open at the end of the data as a natural end
// and returns the ledger.
func (e *Engine) Finish() (Ledger, error) {
	if e.done {
		return Ledger{}, errors.New("sim: engine already finished")
	}
	e.done = true

	if e.rounds.IsOpen() {
		last := e.records[len(e.records)-1]
		if _, err := e.rounds.Close(last.Date, last.Price, last.Equity, OutcomeNaturalEnd); err != nil {
			return Ledger{}, err
		}
	}

	records := make([]DailyRecord, len(e.records))
	copy(records, e.records)
	events := make([]RebalanceEvent, len(e.events))
	copy(events, e.events)

	return Ledger{Records: records, Rounds: e.rounds.Rounds(), Rebalances: events}, nil
}

// hold processes a day with a position: opened today when entryDay is set,
// otherwise carried from the previous close. The entry day accrues no
// interest or dividends since the position is bought at that day's close.
func (e *Engine) hold(obs market.DailyObservation, entryDay bool) (DailyRecord, error) {
	status := StatusActive
	var interest, dividend float64

	if entryDay {
		if _, err := e.rounds.Open(obs.Date, obs.Price, e.equity); err != nil {
			return DailyRecord{}, err
		}
		e.pos = Open(e.equity, e.cfg.TargetLeverage, obs.Price, obs.Date)
		e.anchor = e.pos.Value(obs.Price)
		e.phase = phaseActive
		status = StatusEntered
	} else {
		interest = e.pos.Loan * obs.BorrowFraction() / 365
		e.pos = e.pos.Accrue(interest)
		if obs.Dividend > 0 {
			dividend = e.pos.Shares * obs.Dividend
			e.pos = e.pos.Reinvest(dividend, obs.Price)
		}
		if e.cfg.Rebalancer != nil {
			ok, err := e.rebalance(obs)
			if err != nil {
				return DailyRecord{}, err
			}
			if ok {
				status = StatusRebalanced
			}
		}
	}
	e.rounds.Observe(interest, dividend, status == StatusRebalanced)

	rec, err := e.holdingRecord(obs, status)
	if err != nil {
		return DailyRecord{}, err
	}
	rec.DailyInterestCost = interest
	rec.DividendReceived = dividend
	e.equity = rec.Equity

	if rec.IsMarginCall {
		if err := e.liquidate(&rec, obs); err != nil {
			return DailyRecord{}, err
		}
	}
	return rec, nil
}

func (e *Engine) rebalance(obs market.DailyObservation) (bool, error) {
	pv := e.pos.Value(obs.Price)
	pos, ev, ok, err := e.cfg.Rebalancer.Rebalance(RebalanceInput{
		Date:           obs.Date,
		Price:          obs.Price,
		Round:          e.rounds.Current(),
		Position:       e.pos,
		PortfolioValue: pv,
		Equity:         pv - e.pos.Loan,
		TargetLeverage: e.cfg.TargetLeverage,
		Anchor:         e.anchor,
	})
	if err != nil {
		var age *market.ArithmeticGuardError
		if errors.As(err, &age) && age.Date.IsZero() {
			age.Date = obs.Date
		}
		return false, err
	}
	if !ok {
		return false, nil
	}
	e.pos = pos
	e.anchor = pos.Value(obs.Price)
	ev.Date = obs.Date
	ev.Round = e.rounds.Current()
	ev.Price = obs.Price
	e.events = append(e.events, ev)
	return true, nil
}

// liquidate sells everything at the breach valuation and starts the
// cooling-off period.
func (e *Engine) liquidate(rec *DailyRecord, obs market.DailyObservation) error {
	proceeds := math.Max(0, rec.Equity)
	if _, err := e.rounds.Close(obs.Date, obs.Price, proceeds, OutcomeMarginCall); err != nil {
		return err
	}

	rec.Status = StatusLiquidated
	rec.LiquidationValue = proceeds
	rec.SharesHeld = 0
	rec.MarginLoan = 0
	rec.MarginCallPrice = 0

	e.pos = Position{}
	e.anchor = 0
	e.equity = proceeds

	if e.cfg.WaitDays > 0 {
		e.phase = phaseWaiting
		e.waitLeft = e.cfg.WaitDays
		return nil
	}
	e.reenter()
	return nil
}

func (e *Engine) wait(obs market.DailyObservation) DailyRecord {
	rec := e.flatRecord(obs, StatusWaiting)
	rec.RemainingWaitDays = e.waitLeft
	e.waitLeft--
	if e.waitLeft == 0 {
		e.reenter()
	}
	return rec
}

// reenter asks the policy for the next round's capital; the next
// observation opens the position unless the capital is below the floor.
func (e *Engine) reenter() {
	e.equity = e.cfg.Reentry.ReentryCapital(e.equity, e.cfg.Capital, e.cfg.TargetLeverage)
	if !(e.equity > 0) || e.equity < e.cfg.MinReentryEquity {
		e.phase = phaseHalted
		return
	}
	e.phase = phaseFlat
}

func (e *Engine) holdingRecord(obs market.DailyObservation, status Status) (DailyRecord, error) {
	mm := e.cfg.Maintenance
	pv := e.pos.Value(obs.Price)
	equity := pv - e.pos.Loan

	callPrice, err := risk.CallPrice(e.pos.Loan, e.pos.Shares, mm)
	if err != nil {
		return DailyRecord{}, &market.ArithmeticGuardError{Date: obs.Date, Reason: err.Error()}
	}
	cushion, cushionPct := risk.Cushion(equity, pv, mm)

	return DailyRecord{
		Date:                obs.Date,
		Price:               obs.Price,
		Status:              status,
		Round:               e.rounds.Current(),
		SharesHeld:          e.pos.Shares,
		PortfolioValue:      pv,
		MarginLoan:          e.pos.Loan,
		Equity:              equity,
		MaintenanceRequired: pv * mm,
		IsMarginCall:        risk.BreachesMaintenance(equity, pv, mm),
		MarginCallPrice:     callPrice,
		Cushion:             cushion,
		CushionPct:          cushionPct,
		ReferenceRate:       obs.ReferenceRate,
		BorrowRate:          obs.BorrowRate,
	}, nil
}

func (e *Engine) flatRecord(obs market.DailyObservation, status Status) DailyRecord {
	return DailyRecord{
		Date:          obs.Date,
		Price:         obs.Price,
		Status:        status,
		Equity:        e.equity,
		ReferenceRate: obs.ReferenceRate,
		BorrowRate:    obs.BorrowRate,
	}
}

func checkFinite(r DailyRecord) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"shares", r.SharesHeld},
		{"portfolio value", r.PortfolioValue},
		{"margin loan", r.MarginLoan},
		{"equity", r.Equity},
		{"maintenance", r.MaintenanceRequired},
		{"call price", r.MarginCallPrice},
		{"interest", r.DailyInterestCost},
		{"dividend", r.DividendReceived},
		{"liquidation value", r.LiquidationValue},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &market.ArithmeticGuardError{Date: r.Date, Reason: fmt.Sprintf("%s is %v", f.name, f.v)}
		}
	}
	return nil
}
