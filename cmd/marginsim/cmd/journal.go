package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marginsim/journal"
	"github.com/rustyeddy/marginsim/market"
	"github.com/rustyeddy/marginsim/metrics"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query recorded runs",
	Long: `Query runs recorded in a SQLite journal.

Subcommands:
  runs   - List every recorded run
  run    - Show a run's settings and metrics
  rounds - List a run's holding periods

Examples:
  marginsim journal runs
  marginsim journal run 01HV3K...
  marginsim journal rounds 01HV3K... -d runs.db`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List every recorded run",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a run's settings and metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalRoundsCmd = &cobra.Command{
	Use:   "rounds <run-id>",
	Short: "List a run's holding periods",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRounds,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalRunCmd)
	journalCmd.AddCommand(journalRoundsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./marginsim.sqlite", "path to SQLite journal DB")
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runs, err := j.ListRuns()
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-26s  %-9s  %5s  %-19s  %12s  %s\n", "RUN", "ACCOUNT", "LEV", "MODE", "CAPITAL", "PERIOD")
	for _, r := range runs {
		fmt.Fprintf(out, "%-26s  %-9s  %5.2f  %-19s  %12.2f  %s..%s\n",
			r.RunID, r.Account, r.Leverage, r.Mode, r.Capital,
			r.Start.Format(market.DateLayout), r.End.Format(market.DateLayout))
	}
	return nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	r, m, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:         %s\n", r.RunID)
	fmt.Fprintf(out, "Created:     %s\n", r.Created.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Dataset:     %s\n", r.Dataset)
	fmt.Fprintf(out, "Account:     %s %.2fx (maintenance %.0f%%, spread %.2f%%)\n",
		r.Account, r.Leverage, r.Maintenance*100, r.Spread)
	fmt.Fprintf(out, "Mode:        %s (%s)\n", r.Mode, r.Policy)
	fmt.Fprintf(out, "Capital:     $%.2f\n", r.Capital)
	fmt.Fprintf(out, "Period:      %s to %s\n\n", r.Start.Format(market.DateLayout), r.End.Format(market.DateLayout))

	for _, k := range metrics.Keys() {
		v, ok := m[k]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "  %-36s %14.4f\n", k, v)
	}
	return nil
}

func runJournalRounds(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rounds, err := j.ListRounds(args[0])
	if err != nil {
		return fmt.Errorf("query rounds: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, r := range rounds {
		fmt.Fprintf(out, "#%-3d %s..%s %5d days  %-11s  $%12.2f -> $%12.2f  rebalances %d\n",
			r.Number, r.StartDate.Format(market.DateLayout), r.EndDate.Format(market.DateLayout),
			r.DaysHeld, r.Outcome, r.CapitalDeployed, r.FinalValue, r.Rebalances)
	}
	return nil
}
