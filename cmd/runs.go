package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect phone lookup run history",
	Long:  "Commands for listing runs and reading back their items and summaries.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("runs")
	},
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs items --

var runsItemsCmd = &cobra.Command{
	Use:   "items <run-id>",
	Short: "Print the output dataset of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		formatName, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		format, err := outputFormat(formatName, output)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		items, err := st.ListItems(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs items")
		}
		return writeOutput(output, format, items, cmd.OutOrStdout())
	},
}

// -- runs summary --

var runsSummaryCmd = &cobra.Command{
	Use:   "summary <run-id>",
	Short: "Print the summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if _, err := st.GetRun(ctx, args[0]); err != nil {
			return eris.Wrap(err, "runs summary")
		}
		value, err := st.GetValue(ctx, args[0], model.SummaryKey)
		if err != nil {
			return eris.Wrap(err, "runs summary")
		}
		if value == nil {
			fmt.Fprintln(os.Stderr, "No summary recorded for this run.")
			return nil
		}

		var summary model.Summary
		if err := json.Unmarshal(value, &summary); err != nil {
			return eris.Wrap(err, "runs summary: decode")
		}
		formatSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 10000}) // high limit for stats
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		var cutoff time.Time
		if since > 0 {
			cutoff = time.Now().Add(-since)
		}
		formatRunStats(cmd.OutOrStdout(), computeRunStats(runs, cutoff))
		return nil
	},
}

func init() {
	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h); 0 for all")

	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsItemsCmd.Flags().String("format", "", "output format: json, csv or xlsx")
	runsItemsCmd.Flags().String("output", "", "write items to this file instead of stdout")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsItemsCmd)
	runsCmd.AddCommand(runsSummaryCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total      int
	Individual int
	Bulk       int
	Complete   int
	Failed     int
	Running    int
	AvgDurSecs float64
}

// computeRunStats aggregates the runs created at or after since.
func computeRunStats(runs []model.Run, since time.Time) runStats {
	var s runStats

	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		if r.CreatedAt.Before(since) {
			continue
		}
		s.Total++
		if r.Mode == string(model.ModeBulk) {
			s.Bulk++
		} else {
			s.Individual++
		}

		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
			durCount++
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.Running++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "  Individual:\t%d\n", s.Individual)
	_, _ = fmt.Fprintf(w, "  Bulk:\t%d\n", s.Bulk)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tMODE\tTARGET\tSTATUS\tCREATED\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t------\t-------\t--------\t-----")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Mode,
			truncate(runTarget(r), 30),
			r.Status,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
			truncate(r.Error, 40),
		)
	}
	_ = w.Flush()
}

// formatSummary writes a summary as aligned key/value lines.
func formatSummary(out io.Writer, s model.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Type:\t%s\n", s.Type)
	_, _ = fmt.Fprintf(w, "Total processed:\t%d\n", s.TotalProcessed)
	_, _ = fmt.Fprintf(w, "Phones found:\t%d\n", s.PhonesFound)
	_, _ = fmt.Fprintf(w, "Errors:\t%d\n", s.Errors)
	_, _ = fmt.Fprintf(w, "Success rate:\t%s\n", s.SuccessRate)
	_, _ = fmt.Fprintf(w, "Processed at:\t%s\n", s.ProcessedAt.Format(time.RFC3339))
	_ = w.Flush()
}

// runTarget describes what a run looked up.
func runTarget(r model.Run) string {
	if r.Mode == string(model.ModeBulk) {
		return r.Input.CompanyNames
	}
	return r.Input.CompanyName
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens s to n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
