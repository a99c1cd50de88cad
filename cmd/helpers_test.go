package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/empresas-cli/internal/config"
	"github.com/sells-group/empresas-cli/internal/model"
)

const header = "Ciudad_Act,CodDANE,Telefono_Act1,NombresGerenteGeneral_Act,ApellidosGerenteGeneral_Act,NombresGerenteFinanciero_Act,ApellidosGerenteFinanciero_Act\n"

const sampleCSV = header +
	"bogota,11001000,3001234567,juan,perez,ana,gomez\n" +
	"medellin,5001000,,maria,lopez,,\n"

// setTestConfig points the global config at a temp tree and restores it
// after the test.
func setTestConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	root := t.TempDir()
	prev := cfg
	cfg = &config.Config{
		Paths: config.PathsConfig{
			Raw:        filepath.Join(root, "raw"),
			Output:     filepath.Join(root, "output"),
			Processed:  filepath.Join(root, "processed"),
			Reports:    filepath.Join(root, "reports"),
			Dashboards: filepath.Join(root, "dashboards"),
			Database:   filepath.Join(root, "database"),
		},
		Input: config.InputConfig{Delimiter: ",", Encoding: "utf-8"},
		Store: config.StoreConfig{Driver: driver},
		Pipeline: config.PipelineConfig{
			RequiredColumns:   []string{model.ColCity, model.ColDANECode},
			OutputConcurrency: 2,
		},
		Monitoring: config.MonitoringConfig{LowCompletenessThreshold: 50},
		Server:     config.ServerConfig{Port: 8501},
	}
	t.Cleanup(func() { cfg = prev })
	return cfg
}

func writeInput(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "BD.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd's RunE with flags set, capturing its output. Parent
// persistent flags are merged in as cobra does when parsing arguments.
// Flags are reset afterwards since the commands are package globals.
func execute(t *testing.T, cmd *cobra.Command, flags map[string]string) (string, error) {
	t.Helper()
	cmd.Flags().AddFlagSet(cmd.InheritedFlags())
	for name, v := range flags {
		require.NoError(t, cmd.Flags().Set(name, v))
	}
	t.Cleanup(func() {
		for name := range flags {
			f := cmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, nil)
	return buf.String(), err
}
