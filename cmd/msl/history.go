package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mediascrape/msl/internal/config"
	"github.com/mediascrape/msl/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past runs recorded in the history database",
		Long: `History lists past runs, newest first. With a run ID argument it
shows the files that run saved.

Examples:
  # List recent runs
  msl history

  # List the last 5 runs
  msl history --limit 5

  # Show the files a run saved
  msl history 11111111-2222-3333-4444-555555555555`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	// History is read-only: a missing database just means no runs yet
	opts := database.Options{CreateIfNotExists: false, EnableWAL: true}
	db, err := database.Open(dbDir, opts)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No run history found.")
		return nil //nolint:nilerr // Missing history is not an error
	}
	defer db.Close()

	ctx := cmd.Context()

	if len(args) == 1 {
		return showRun(cmd, db, args[0])
	}

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No run history found.")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, run := range runs {
		fmt.Fprintf(out, "%s  %s  %s\n", run.ID, run.Started.Format("2006-01-02 15:04:05"), run.ScriptPath)
		fmt.Fprintf(out, "    pages: %d  branches: %d (%d failed)  saved: %d\n",
			run.PagesFetched, run.BranchesTotal, run.BranchesFailed, run.SavesTotal)
	}

	return nil
}

// showRun prints one run's detail including its saved files.
func showRun(cmd *cobra.Command, db *database.HistoryDB, runID string) error {
	ctx := cmd.Context()

	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", runID)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Script:   %s\n", run.ScriptPath)
	fmt.Fprintf(out, "Started:  %s\n", run.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Duration: %s\n", run.Finished.Sub(run.Started))
	fmt.Fprintf(out, "Pages:    %d\n", run.PagesFetched)
	fmt.Fprintf(out, "Branches: %d (%d failed)\n", run.BranchesTotal, run.BranchesFailed)
	fmt.Fprintf(out, "Saved:    %d\n", run.SavesTotal)

	saves, err := db.GetSaves(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get saves: %w", err)
	}
	if len(saves) > 0 {
		fmt.Fprintln(out)
		for _, s := range saves {
			fmt.Fprintf(out, "  %s -> %s\n", s.SourceURL, s.DestPath)
		}
	}

	return nil
}
