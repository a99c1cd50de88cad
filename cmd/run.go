package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/pipeline"
)

const rawInputFile = "BD.xlsx"

// Each phase defaults to reading what the previous one wrote.
func defaultRawInput() string {
	return filepath.Join(cfg.Paths.Raw, rawInputFile)
}

func defaultCleanedInput() string {
	return filepath.Join(cfg.Paths.Output, pipeline.FileCleanCSV)
}

func defaultEnrichedInput() string {
	return filepath.Join(cfg.Paths.Processed, pipeline.FileEnrichedCSV)
}

var runCmd = newPhaseCmd("run", "Run clean, enrich and integrate over one input",
	defaultRawInput, pipeline.AllPhases...)

var cleanCmd = newPhaseCmd("clean", "Clean the raw spreadsheet and write the data dictionary",
	defaultRawInput, pipeline.PhaseClean)

var enrichCmd = newPhaseCmd("enrich", "Enrich a cleaned file with region, size, completeness and IDs",
	defaultCleanedInput, pipeline.PhaseEnrich)

var integrateCmd = newPhaseCmd("integrate", "Join reference data, score risk and publish the database and dashboards",
	defaultEnrichedInput, pipeline.PhaseIntegrate)

// newPhaseCmd builds a command executing phases over --input, falling back
// to defaultInput when the flag is empty.
func newPhaseCmd(use, short string, defaultInput func() string, phases ...pipeline.Phase) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			input, _ := cmd.Flags().GetString("input")
			if input == "" {
				input = defaultInput()
			}

			env, err := initPipeline(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			run, err := env.Pipeline.Execute(ctx, input, phases...)
			if run != nil {
				formatRun(cmd.OutOrStdout(), run)
			}
			return err
		},
	}
	cmd.Flags().String("input", "", "input file path or http(s) URL (default depends on the command)")
	return cmd
}

// formatRun writes the outcome of a run and each of its phases.
func formatRun(w io.Writer, run *model.Run) {
	fmt.Fprintf(w, "Run %s: %s (%d rows in, %d rows out)\n", run.ID, run.Status, run.RowsIn, run.RowsOut) //nolint:errcheck
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error) //nolint:errcheck
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PHASE\tSTATUS\tDURATION\tARTIFACTS") //nolint:errcheck
	for _, ph := range run.Phases {
		fmt.Fprintf(tw, "%s\t%s\t%dms\t%d\n", ph.Name, ph.Status, ph.Duration, artifactCount(ph.Metadata)) //nolint:errcheck
	}
	tw.Flush() //nolint:errcheck
}

func artifactCount(meta map[string]any) int {
	switch v := meta["artifacts"].(type) {
	case []string:
		return len(v)
	case []any:
		return len(v)
	}
	return 0
}

func init() {
	rootCmd.AddCommand(runCmd, cleanCmd, enrichCmd, integrateCmd)
}
