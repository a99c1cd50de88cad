package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/empresas-cli/internal/reference"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Inspect the reference tables",
}

var tablesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the reference tables for conflicting or shadowed entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := tablesFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reference tables OK: %d corrections, %d cities, %d regions\n", //nolint:errcheck
			len(t.Corrections), len(t.Cities), len(t.Regions))
		return nil
	},
}

var tablesDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective reference tables as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := tablesFromFlags(cmd)
		if err != nil {
			return err
		}
		return reference.Dump(cmd.OutOrStdout(), t)
	},
}

// tablesFromFlags loads the tables from --file, or from the configured
// overlay when the flag is empty.
func tablesFromFlags(cmd *cobra.Command) (*reference.Tables, error) {
	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		file = cfg.Reference.File
	}
	return loadReference(file)
}

func init() {
	tablesCmd.PersistentFlags().String("file", "", "YAML overlay to load instead of reference.file")
	tablesCmd.AddCommand(tablesValidateCmd, tablesDumpCmd)
	rootCmd.AddCommand(tablesCmd)
}
