package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/urlscope/urlscope/internal/config"
	"github.com/urlscope/urlscope/internal/database"
	"github.com/urlscope/urlscope/internal/model"
	"github.com/urlscope/urlscope/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [base-url]",
		Short: "List and inspect past discovery runs",
		Long: `History lists the discovery runs stored in the local database and can
re-emit the inventory of a stored run.

Without arguments it lists every stored run, newest first. With a base
URL argument it lists only that base's runs.

Examples:
  # List all stored runs
  urlscope history

  # List runs for one base
  urlscope history https://pulse.example.com

  # List known base domains
  urlscope history --bases

  # Re-emit a stored inventory by run ID
  urlscope history --show 12

  # Re-emit the latest inventory for a base, as JSON
  urlscope history --latest --json https://pulse.example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("show", "s", 0, "Show the stored inventory for a run ID")
	cmd.Flags().BoolP("latest", "l", false, "Show the latest stored inventory for the given base")
	cmd.Flags().Bool("bases", false, "List the base domains that have stored runs")
	cmd.Flags().BoolP("json", "j", false, "Output stored inventories as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Output stored inventories as Markdown")
	cmd.Flags().String("db-dir", "", "Database directory (default: XDG data directory)")

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

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("no run history found in %s (run a discovery first): %w", dbDir, err)
	}
	defer db.Close()

	ctx := context.Background()

	var base string
	if len(args) > 0 {
		base, err = normalizeBase(args[0])
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", args[0], err)
		}
	}

	showBases, err := cmd.Flags().GetBool("bases")
	if err != nil {
		return err
	}
	if showBases {
		return listBases(ctx, cmd, db)
	}

	runID, err := cmd.Flags().GetInt64("show")
	if err != nil {
		return err
	}
	latest, err := cmd.Flags().GetBool("latest")
	if err != nil {
		return err
	}

	switch {
	case runID > 0:
		stored, err := db.GetRun(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to load run %d: %w", runID, err)
		}
		if stored == nil {
			return fmt.Errorf("run %d not found", runID)
		}
		return showStoredReport(cmd, stored)
	case latest:
		if base == "" {
			return fmt.Errorf("--latest requires a base URL argument")
		}
		stored, err := db.GetLatestRun(ctx, base)
		if err != nil {
			return fmt.Errorf("failed to load latest run for %s: %w", base, err)
		}
		if stored == nil {
			return fmt.Errorf("no stored runs for %s", base)
		}
		return showStoredReport(cmd, stored)
	default:
		return listRuns(ctx, cmd, db, base)
	}
}

// listRuns prints run metadata, newest first.
func listRuns(ctx context.Context, cmd *cobra.Command, db *database.HistoryDB, base string) error {
	runs, err := db.ListRuns(ctx, base)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		if base != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "No stored runs for %s\n", base)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No stored runs")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBASE\tSTARTED\tELAPSED\tURLS\tSTATUS")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			run.ID,
			run.Base,
			run.Started.Format("2006-01-02 15:04"),
			run.Elapsed.Round(time.Millisecond),
			run.URLCount,
			runStatus(run),
		)
	}
	return w.Flush()
}

// runStatus renders the status column for a run listing.
func runStatus(run database.RunMetadata) string {
	switch {
	case run.Cancelled:
		return "cancelled"
	case run.ErrorMessage != "":
		return "error"
	default:
		return "ok"
	}
}

// listBases prints the base domains with stored runs.
func listBases(ctx context.Context, cmd *cobra.Command, db *database.HistoryDB) error {
	bases, err := db.ListBases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bases: %w", err)
	}
	if len(bases) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored runs")
		return nil
	}
	for _, b := range bases {
		fmt.Fprintln(cmd.OutOrStdout(), b)
	}
	return nil
}

// showStoredReport re-emits a stored inventory in the requested format.
func showStoredReport(cmd *cobra.Command, stored *model.DiscoveryReport) error {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOut && markdownOut {
		return config.ErrConflictingReportFormats
	}

	out := cmd.OutOrStdout()

	var w report.Writer
	switch {
	case jsonOut:
		w = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case markdownOut:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(true))
	}

	_, err = w.Write(stored)
	return err
}
