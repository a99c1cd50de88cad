package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/empresas-cli/internal/model"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded pipeline runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := loadRuns(cmd)
		if err != nil {
			return err
		}
		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recent pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := loadRuns(cmd)
		if err != nil {
			return err
		}
		formatRunStats(cmd.OutOrStdout(), computeRunStats(runs))
		return nil
	},
}

func loadRuns(cmd *cobra.Command) ([]model.Run, error) {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("runs: store driver is none; no runs are recorded")
	}
	defer st.Close() //nolint:errcheck

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "runs: list")
	}
	return runs, nil
}

// formatRunsList writes runs as an aligned table.
func formatRunsList(w io.Writer, runs []model.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.") //nolint:errcheck
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tSTATUS\tROWS IN\tROWS OUT\tSTARTED\tDURATION") //nolint:errcheck
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n", //nolint:errcheck
			truncateID(r.ID),
			r.Source,
			r.Status,
			r.RowsIn,
			r.RowsOut,
			r.StartedAt.Format("2006-01-02 15:04"),
			formatDuration(r),
		)
	}
	tw.Flush() //nolint:errcheck
}

func formatDuration(r model.Run) string {
	if r.CompletedAt.IsZero() {
		return "-"
	}
	return r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

// runStats holds aggregate counts over a set of runs.
type runStats struct {
	Total       int
	Complete    int
	Failed      int
	InProgress  int
	RowsIn      int
	RowsOut     int
	AvgDuration time.Duration
}

func computeRunStats(runs []model.Run) runStats {
	var s runStats
	var total time.Duration
	var finished int
	for _, r := range runs {
		s.Total++
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			s.RowsIn += r.RowsIn
			s.RowsOut += r.RowsOut
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.InProgress++
		}
		if !r.CompletedAt.IsZero() {
			total += r.CompletedAt.Sub(r.StartedAt)
			finished++
		}
	}
	if finished > 0 {
		s.AvgDuration = total / time.Duration(finished)
	}
	return s
}

func formatRunStats(w io.Writer, s runStats) {
	fmt.Fprintf(w, "Runs:         %d\nComplete:     %d\nFailed:       %d\nIn progress:  %d\n"+ //nolint:errcheck
		"Rows in/out:  %d / %d\nAvg duration: %s\n",
		s.Total, s.Complete, s.Failed, s.InProgress,
		s.RowsIn, s.RowsOut, s.AvgDuration.Round(time.Millisecond))
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	runsCmd.PersistentFlags().Int("limit", 20, "maximum number of runs to read")
	runsCmd.AddCommand(runsListCmd, runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}
