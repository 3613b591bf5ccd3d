package sweep

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rustyeddy/marginsim/backtest"
)

const namespace = "marginsim"

// Metrics are the collectors a sweep updates as runs finish.
type Metrics struct {
	Runs         *prometheus.CounterVec
	Liquidations *prometheus.CounterVec
	Duration     prometheus.Histogram
	FinalEquity  *prometheus.GaugeVec
}

// NewMetrics creates the sweep collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Simulation runs finished by a sweep, by mode and result.",
		}, []string{"mode", "result"}),
		Liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "liquidations_total",
			Help:      "Forced liquidations across all successful sweep runs.",
		}, []string{"mode"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a single sweep run.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		FinalEquity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "final_equity",
			Help:      "Final equity of the most recent run, by mode.",
		}, []string{"mode"}),
	}
	for _, c := range []prometheus.Collector{m.Runs, m.Liquidations, m.Duration, m.FinalEquity} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(req backtest.Request, res backtest.Result, err error, took time.Duration) {
	if m == nil {
		return
	}
	mode := string(req.Mode)
	m.Duration.Observe(took.Seconds())
	switch {
	case err != nil:
		m.Runs.WithLabelValues(mode, "error").Inc()
		return
	case res.Cached:
		m.Runs.WithLabelValues(mode, "cached").Inc()
	default:
		m.Runs.WithLabelValues(mode, "ok").Inc()
	}
	m.Liquidations.WithLabelValues(mode).Add(float64(res.Metrics.Liquidations))
	m.FinalEquity.WithLabelValues(mode).Set(res.Metrics.FinalEquity)
}

// WriteTextfile writes everything g gathers in the node exporter textfile
// format.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
