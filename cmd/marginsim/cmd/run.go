package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/config"
	"github.com/rustyeddy/marginsim/journal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation",
	Long: `Replay the daily data once with the configured account and mode.

Flags override the matching config file settings.

Examples:
  marginsim run -c sim.yaml
  marginsim run --data spy.csv --account portfolio --leverage 4 --mode fresh_capital`,
	RunE: runRun,
}

var (
	runData      string
	runAccount   string
	runCapital   float64
	runLeverage  float64
	runMode      string
	runStart     string
	runEnd       string
	runWaitDays  int
	runThreshold float64
	runCostBps   float64
	runOrg       string
)

func init() {
	rootCmd.AddCommand(runCmd)
	addSimFlags(runCmd)
	runCmd.Flags().StringVar(&runOrg, "org", "", "write an org-mode report to this path")
}

// addSimFlags registers the flags shared by run and sweep.
func addSimFlags(c *cobra.Command) {
	c.Flags().StringVar(&runData, "data", "", "daily CSV (date,price[,dividend,reference_rate,borrow_rate])")
	c.Flags().StringVar(&runAccount, "account", "", "account type (reg_t, portfolio)")
	c.Flags().Float64Var(&runCapital, "capital", 0, "investment in dollars")
	c.Flags().Float64Var(&runLeverage, "leverage", 0, "target leverage")
	c.Flags().StringVar(&runMode, "mode", "", "liquidation_reentry, fresh_capital or profit_threshold")
	c.Flags().StringVar(&runStart, "start", "", "first date, YYYY-MM-DD")
	c.Flags().StringVar(&runEnd, "end", "", "last date, YYYY-MM-DD")
	c.Flags().IntVar(&runWaitDays, "wait-days", 0, "trading days to wait after a liquidation")
	c.Flags().Float64Var(&runThreshold, "threshold", 0, "profit threshold percent")
	c.Flags().Float64Var(&runCostBps, "cost-bps", 0, "rebalance transaction cost in basis points")
}

// applySimFlags copies explicitly set flags over the loaded config.
func applySimFlags(c *cobra.Command, cfg *config.Config) error {
	fl := c.Flags()
	if fl.Changed("data") {
		cfg.Simulation.Data = runData
	}
	if fl.Changed("account") {
		cfg.Account.Type = runAccount
	}
	if fl.Changed("capital") {
		cfg.Account.Capital = runCapital
	}
	if fl.Changed("leverage") {
		cfg.Account.Leverage = runLeverage
	}
	if fl.Changed("mode") {
		cfg.Simulation.Mode = runMode
	}
	if fl.Changed("start") {
		cfg.Simulation.Start = runStart
	}
	if fl.Changed("end") {
		cfg.Simulation.End = runEnd
	}
	if fl.Changed("wait-days") {
		cfg.Simulation.WaitDays = runWaitDays
	}
	if fl.Changed("threshold") {
		cfg.Simulation.ProfitThresholdPct = runThreshold
	}
	if fl.Changed("cost-bps") {
		cfg.Simulation.TransactionCostBps = runCostBps
	}
	return cfg.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applySimFlags(cmd, cfg); err != nil {
		return err
	}
	if runOrg != "" {
		cfg.Journal.OrgPath = runOrg
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	req, err := cfg.Request()
	if err != nil {
		return err
	}
	rows, err := loadRows(cfg.Simulation.Data)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := &backtest.Runner{Logger: log}
	res, err := runner.Run(ctx, req, rows)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	backtest.PrintResult(cmd.OutOrStdout(), res)

	if err := saveResult(cfg.Journal, res, cfg.Simulation.Data, log); err != nil {
		return err
	}
	return nil
}

// saveResult sends a result to the configured journal and org report.
func saveResult(jc config.JournalConfig, res backtest.Result, dataset string, log *zap.Logger) error {
	if err := journalResults(jc, dataset, res); err != nil {
		return err
	}
	if jc.Type == "csv" || jc.Type == "sqlite" {
		log.Info("journal written", zap.String("type", jc.Type), zap.String("run_id", res.RunID))
	}

	if jc.OrgPath != "" {
		if err := journal.WriteOrg(jc.OrgPath, res, dataset); err != nil {
			return fmt.Errorf("org report: %w", err)
		}
		log.Info("org report written", zap.String("path", jc.OrgPath))
	}
	return nil
}
