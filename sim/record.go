package sim

import "time"

// Status tags each ledger row with the lifecycle state it was produced in.
type Status string

const (
	StatusNoPosition Status = "no_position"
	StatusWaiting    Status = "waiting"
	StatusEntered    Status = "entered"
	StatusActive     Status = "active"
	StatusLiquidated Status = "liquidated"
	StatusRebalanced Status = "rebalanced"
)

// Holding reports whether the row describes an open position.
func (s Status) Holding() bool {
	return s == StatusEntered || s == StatusActive || s == StatusRebalanced
}

// DailyRecord is one append-only ledger row. On Liquidated rows the
// valuation fields (PortfolioValue, Equity, MaintenanceRequired) describe
// the breach that forced the sale, while SharesHeld and MarginLoan describe
// the flat account left behind.
type DailyRecord struct {
	Date   time.Time
	Price  float64
	Status Status
	Round  int // 0 outside a holding period

	SharesHeld          float64
	PortfolioValue      float64
	MarginLoan          float64
	Equity              float64
	MaintenanceRequired float64
	IsMarginCall        bool
	MarginCallPrice     float64
	Cushion             float64
	CushionPct          float64

	DailyInterestCost float64
	DividendReceived  float64
	LiquidationValue  float64
	RemainingWaitDays int

	ReferenceRate float64
	BorrowRate    float64
}

// MarkedEquity is the account value the day closes with: the liquidation
// proceeds on a Liquidated row, equity otherwise.
func (r DailyRecord) MarkedEquity() float64 {
	if r.Status == StatusLiquidated {
		return r.LiquidationValue
	}
	return r.Equity
}

// Outcome records how a round ended.
type Outcome string

const (
	OutcomeMarginCall Outcome = "margin_call"
	OutcomeNaturalEnd Outcome = "natural_end"
)

// Round summarizes one holding period from entry to exit.
type Round struct {
	Number          int
	StartDate       time.Time
	EndDate         time.Time
	DaysHeld        int
	StartPrice      float64
	EndPrice        float64
	CapitalDeployed float64
	FinalValue      float64
	Outcome         Outcome

	InterestPaid      float64
	DividendsReceived float64
	Rebalances        int
}

func (r Round) ProfitLoss() float64 { return r.FinalValue - r.CapitalDeployed }

// ReturnPct is the round's profit or loss as a percentage of capital deployed.
func (r Round) ReturnPct() float64 {
	if r.CapitalDeployed == 0 {
		return 0
	}
	return r.ProfitLoss() / r.CapitalDeployed * 100
}

// LossPct is the percentage of deployed capital lost, zero for a gain.
func (r Round) LossPct() float64 {
	if pct := r.ReturnPct(); pct < 0 {
		return -pct
	}
	return 0
}

func (r Round) PriceChangePct() float64 {
	if r.StartPrice == 0 {
		return 0
	}
	return (r.EndPrice/r.StartPrice - 1) * 100
}

// RebalanceEvent records a leverage top-up made by a Rebalancer.
type RebalanceEvent struct {
	Date             time.Time
	Round            int
	Price            float64
	GrowthTriggerPct float64
	SharesAdded      float64
	Borrowed         float64
	TransactionCost  float64
	LeverageBefore   float64
	LeverageAfter    float64
	PortfolioAfter   float64
}

// Ledger is the complete output of one run.
type Ledger struct {
	Records    []DailyRecord
	Rounds     []Round
	Rebalances []RebalanceEvent
}

// Clone returns a ledger that shares no backing arrays with l.
func (l Ledger) Clone() Ledger {
	return Ledger{
		Records:    append([]DailyRecord(nil), l.Records...),
		Rounds:     append([]Round(nil), l.Rounds...),
		Rebalances: append([]RebalanceEvent(nil), l.Rebalances...),
	}
}
