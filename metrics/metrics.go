// Package metrics derives run statistics from a completed ledger. Every
// figure is recomputed from the ledger on demand; nothing is cached here.
package metrics

import (
	"math"

	"github.com/rustyeddy/marginsim/sim"
)

// TradingDaysPerYear annualizes daily figures.
const TradingDaysPerYear = 252

// RunMetrics summarizes one run. Percentages are numeric percent (12.5
// means 12.5%), currency is in account units, durations are in trading days.
type RunMetrics struct {
	InitialEquity        float64
	FinalEquity          float64
	TotalCapitalDeployed float64
	TotalReturnPct       float64
	CAGRPct              float64
	AnnualVolatilityPct  float64
	Sharpe               float64
	Sortino              float64
	Calmar               float64
	MaxDrawdownPct       float64
	MaxDrawdownDays      int

	TradingDays     int
	Years           float64
	DaysInMarket    int
	TimeInMarketPct float64

	Rounds                     int
	Liquidations               int
	LiquidationRatePct         float64 // share of rounds ended by a margin call
	AvgDaysSurvived            float64
	AvgLossPct                 float64
	WorstLossPct               float64
	BestGainPct                float64
	SuccessRatePct             float64
	AvgDaysBetweenLiquidations float64
	Rebalances                 int

	TotalInterest  float64
	TotalDividends float64
	NetCarry       float64
}

// Compute derives RunMetrics from a ledger. initial is the capital the run
// opened its first position with.
func Compute(l sim.Ledger, initial float64) RunMetrics {
	m := RunMetrics{
		InitialEquity: initial,
		TradingDays:   len(l.Records),
		Years:         float64(len(l.Records)) / TradingDaysPerYear,
		Rounds:        len(l.Rounds),
		Rebalances:    len(l.Rebalances),
	}
	if n := len(l.Records); n > 0 {
		m.FinalEquity = l.Records[n-1].MarkedEquity()
	} else {
		m.FinalEquity = initial
	}

	m.TotalCapitalDeployed = capitalDeployed(l.Rounds, initial)
	if m.TotalCapitalDeployed > 0 {
		m.TotalReturnPct = (m.FinalEquity/m.TotalCapitalDeployed - 1) * 100
	}
	m.CAGRPct = cagr(initial, m.FinalEquity, m.Years) * 100

	rets := dailyReturns(l.Records)
	vol := stdev(rets) * math.Sqrt(TradingDaysPerYear)
	m.AnnualVolatilityPct = vol * 100
	if vol > 0 {
		m.Sharpe = m.CAGRPct / 100 / vol
	}
	if dvol := stdev(negatives(rets)) * math.Sqrt(TradingDaysPerYear); dvol > 0 {
		m.Sortino = m.CAGRPct / 100 / dvol
	}
	m.MaxDrawdownPct, m.MaxDrawdownDays = drawdown(l.Records)
	if m.MaxDrawdownPct < 0 {
		m.Calmar = m.CAGRPct / -m.MaxDrawdownPct
	}

	var lastLiq, liqGaps, gapSum int
	for i, r := range l.Records {
		m.TotalInterest += r.DailyInterestCost
		m.TotalDividends += r.DividendReceived
		if r.Status.Holding() || r.Status == sim.StatusLiquidated {
			m.DaysInMarket++
		}
		if r.Status == sim.StatusLiquidated {
			if m.Liquidations > 0 {
				gapSum += i - lastLiq
				liqGaps++
			}
			lastLiq = i
			m.Liquidations++
		}
	}
	m.NetCarry = m.TotalDividends - m.TotalInterest
	if liqGaps > 0 {
		m.AvgDaysBetweenLiquidations = float64(gapSum) / float64(liqGaps)
	}
	if m.TradingDays > 0 {
		m.TimeInMarketPct = float64(m.DaysInMarket) / float64(m.TradingDays) * 100
	}

	roundStats(&m, l.Rounds)
	if m.Rounds > 0 {
		m.LiquidationRatePct = float64(m.Liquidations) / float64(m.Rounds) * 100
	}
	return m
}

func roundStats(m *RunMetrics, rounds []sim.Round) {
	if len(rounds) == 0 {
		return
	}
	var days, wins, calls int
	var lossSum float64
	m.BestGainPct = math.Inf(-1)
	for _, r := range rounds {
		days += r.DaysHeld
		if r.ProfitLoss() > 0 {
			wins++
		}
		if ret := r.ReturnPct(); ret > m.BestGainPct {
			m.BestGainPct = ret
		}
		if r.Outcome == sim.OutcomeMarginCall {
			calls++
			lossSum += r.LossPct()
			m.WorstLossPct = math.Max(m.WorstLossPct, r.LossPct())
		}
	}
	m.AvgDaysSurvived = float64(days) / float64(len(rounds))
	m.SuccessRatePct = float64(wins) / float64(len(rounds)) * 100
	if calls > 0 {
		m.AvgLossPct = lossSum / float64(calls)
	}
}

// capitalDeployed counts the first round's capital plus whatever each later
// round brought in beyond what the previous round left behind.
func capitalDeployed(rounds []sim.Round, initial float64) float64 {
	if len(rounds) == 0 {
		return initial
	}
	total := rounds[0].CapitalDeployed
	for i := 1; i < len(rounds); i++ {
		total += math.Max(0, rounds[i].CapitalDeployed-rounds[i-1].FinalValue)
	}
	return total
}

func cagr(initial, final, years float64) float64 {
	if !(initial > 0) || !(years > 0) {
		return 0
	}
	if final <= 0 {
		return -1
	}
	return math.Pow(final/initial, 1/years) - 1
}

// dailyReturns is the day-over-day change in marked equity. Entry days
// count as flat, so capital injected at a re-entry does not read as a gain.
func dailyReturns(recs []sim.DailyRecord) []float64 {
	if len(recs) < 2 {
		return nil
	}
	out := make([]float64, 0, len(recs)-1)
	prev := recs[0].MarkedEquity()
	for _, r := range recs[1:] {
		cur := r.MarkedEquity()
		switch {
		case r.Status == sim.StatusEntered:
			out = append(out, 0)
		case prev > 0:
			out = append(out, cur/prev-1)
		}
		prev = cur
	}
	return out
}

func negatives(xs []float64) []float64 {
	var out []float64
	for _, x := range xs {
		if x < 0 {
			out = append(out, x)
		}
	}
	return out
}

// stdev is the sample standard deviation, zero below two samples.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// drawdown returns the deepest peak-to-trough decline in percent (zero or
// negative) and the longest run of days spent below a prior peak.
func drawdown(recs []sim.DailyRecord) (float64, int) {
	var peak, worst float64
	var run, longest int
	for _, r := range recs {
		eq := r.MarkedEquity()
		if eq > peak {
			peak = eq
		}
		if peak <= 0 {
			continue
		}
		dd := (eq - peak) / peak
		if dd < worst {
			worst = dd
		}
		if dd < 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return worst * 100, longest
}

// Map flattens the metrics into a key/value table. Key suffixes carry the
// unit: _pct is percent, _usd is currency, _days is trading days.
func (m RunMetrics) Map() map[string]float64 {
	return map[string]float64{
		"initial_equity_usd":                 m.InitialEquity,
		"final_equity_usd":                   m.FinalEquity,
		"total_capital_deployed_usd":         m.TotalCapitalDeployed,
		"total_return_pct":                   m.TotalReturnPct,
		"cagr_pct":                           m.CAGRPct,
		"annual_volatility_pct":              m.AnnualVolatilityPct,
		"sharpe_ratio":                       m.Sharpe,
		"sortino_ratio":                      m.Sortino,
		"calmar_ratio":                       m.Calmar,
		"max_drawdown_pct":                   m.MaxDrawdownPct,
		"max_drawdown_duration_days":         float64(m.MaxDrawdownDays),
		"trading_days":                       float64(m.TradingDays),
		"years":                              m.Years,
		"days_in_market_days":                float64(m.DaysInMarket),
		"time_in_market_pct":                 m.TimeInMarketPct,
		"rounds":                             float64(m.Rounds),
		"liquidations":                       float64(m.Liquidations),
		"liquidation_rate_pct":               m.LiquidationRatePct,
		"avg_days_survived_days":             m.AvgDaysSurvived,
		"avg_loss_pct":                       m.AvgLossPct,
		"worst_loss_pct":                     m.WorstLossPct,
		"best_gain_pct":                      m.BestGainPct,
		"success_rate_pct":                   m.SuccessRatePct,
		"avg_days_between_liquidations_days": m.AvgDaysBetweenLiquidations,
		"rebalances":                         float64(m.Rebalances),
		"total_interest_usd":                 m.TotalInterest,
		"total_dividends_usd":                m.TotalDividends,
		"net_carry_usd":                      m.NetCarry,
	}
}

// Keys lists Map's keys in display order.
func Keys() []string {
	return []string{
		"initial_equity_usd", "final_equity_usd", "total_capital_deployed_usd",
		"total_return_pct", "cagr_pct", "annual_volatility_pct",
		"sharpe_ratio", "sortino_ratio", "calmar_ratio", "max_drawdown_pct", "max_drawdown_duration_days",
		"trading_days", "years", "days_in_market_days", "time_in_market_pct",
		"rounds", "liquidations", "liquidation_rate_pct", "avg_days_survived_days", "avg_loss_pct",
		"worst_loss_pct", "best_gain_pct", "success_rate_pct",
		"avg_days_between_liquidations_days", "rebalances",
		"total_interest_usd", "total_dividends_usd", "net_carry_usd",
	}
}
