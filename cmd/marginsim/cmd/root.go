package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/marginsim/backtest"
	"github.com/rustyeddy/marginsim/config"
	"github.com/rustyeddy/marginsim/journal"
	"github.com/rustyeddy/marginsim/logging"
	"github.com/rustyeddy/marginsim/market"
)

var rootCmd = &cobra.Command{
	Use:   "marginsim",
	Short: "Leveraged ETF margin account simulator",
	Long: `Marginsim replays daily ETF prices through a leveraged margin account.

It provides tools for:
  - Simulating Reg T and portfolio margin accounts day by day
  - Liquidating on maintenance breaches and re-entering after a wait
  - Re-levering on profit thresholds
  - Sweeping leverage, investment or threshold across many runs
  - Journaling ledgers to CSV or SQLite and org-mode reports`,
	SilenceUsage: true,
}

var (
	cfgFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults apply when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(level)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadRows(path string) ([]market.DailyObservation, error) {
	f, err := backtest.NewCSVFeed(path, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("open data: %w", err)
	}
	rows, err := backtest.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// openJournal returns nil when journaling is off.
func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.Dir)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return nil, nil
	}
}

// journalResults writes results to the configured journal and closes it.
// A failed run is rolled back by journal.Write; runs written before it stay.
func journalResults(jc config.JournalConfig, dataset string, results ...backtest.Result) (err error) {
	j, err := openJournal(jc)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if j == nil {
		return nil
	}
	defer func() {
		if cerr := j.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close journal: %w", cerr)
		}
	}()

	for _, res := range results {
		if err := journal.Write(j, res, dataset); err != nil {
			return fmt.Errorf("journal run %s: %w", res.RunID, err)
		}
	}
	return nil
}
