package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/cache"
	"github.com/rustyeddy/marginsim/config"
	"github.com/rustyeddy/marginsim/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one simulation per parameter value",
	Long: `Vary a single parameter across a list of values and compare the runs.

Supported parameters: leverage, investment, profit_threshold.

Examples:
  marginsim sweep -c sim.yaml --param leverage --values 1,1.5,2
  marginsim sweep --data qqq.csv --account portfolio --param leverage --values 2,3,4,5,6,7 --metrics-file sweep.prom`,
	RunE: runSweep,
}

var (
	sweepParam       string
	sweepValues      []float64
	sweepWorkers     int
	sweepMetricsFile string
)

func init() {
	rootCmd.AddCommand(sweepCmd)
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "", "parameter to sweep")
	sweepCmd.Flags().Float64SliceVar(&sweepValues, "values", nil, "comma separated values")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "concurrent runs (0 = GOMAXPROCS)")
	sweepCmd.Flags().StringVar(&sweepMetricsFile, "metrics-file", "", "write Prometheus textfile metrics here")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fl := cmd.Flags()
	if fl.Changed("param") {
		cfg.Sweep.Parameter = sweepParam
	}
	if fl.Changed("values") {
		cfg.Sweep.Values = sweepValues
	}
	if fl.Changed("workers") {
		cfg.Sweep.Workers = sweepWorkers
	}
	if fl.Changed("metrics-file") {
		cfg.Sweep.MetricsFile = sweepMetricsFile
	}
	if err := applySimFlags(cmd, cfg); err != nil {
		return err
	}
	if len(cfg.Sweep.Values) == 0 {
		return fmt.Errorf("sweep.values is empty")
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	param, err := sweep.ParseParameter(cfg.Sweep.Parameter)
	if err != nil {
		return err
	}
	req, err := cfg.Request()
	if err != nil {
		return err
	}
	rows, err := loadRows(cfg.Simulation.Data)
	if err != nil {
		return err
	}

	size := cfg.Sweep.CacheSize
	if size == 0 {
		size = cache.DefaultSize
	}
	memo, err := cache.New[backtest.Result](size)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m, err := sweep.NewMetrics(reg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s := &sweep.Sweeper{
		Runner:  &backtest.Runner{Logger: log, Cache: memo},
		Logger:  log,
		Metrics: m,
		Workers: cfg.Sweep.Workers,
	}
	report, err := s.Run(ctx, req, param, cfg.Sweep.Values, rows)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	sweep.PrintReport(cmd.OutOrStdout(), report)

	if err := journalSweep(cfg.Journal, report, cfg.Simulation.Data, log); err != nil {
		return err
	}
	if cfg.Sweep.MetricsFile != "" {
		if err := sweep.WriteTextfile(reg, cfg.Sweep.MetricsFile); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		log.Info("metrics written", zap.String("path", cfg.Sweep.MetricsFile))
	}
	return nil
}

func journalSweep(jc config.JournalConfig, report sweep.Report, dataset string, log *zap.Logger) error {
	results := make([]backtest.Result, len(report.Points))
	for i, p := range report.Points {
		results[i] = p.Result
	}
	if err := journalResults(jc, dataset, results...); err != nil {
		return err
	}
	if jc.Type == "csv" || jc.Type == "sqlite" {
		log.Info("sweep journaled", zap.String("type", jc.Type), zap.Int("runs", len(results)))
	}
	return nil
}
