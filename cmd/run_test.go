package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/pipeline"
	"github.com/sells-group/empresas-cli/internal/store"
)

func TestRunCommand_AllPhases(t *testing.T) {
	c := setTestConfig(t, store.DriverNone)
	input := writeInput(t, c.Paths.Raw, sampleCSV)

	out, err := execute(t, runCmd, map[string]string{"input": input})
	require.NoError(t, err)

	assert.Contains(t, out, ": complete (2 rows in")
	assert.Contains(t, out, "PHASE")
	for _, ph := range pipeline.AllPhases {
		assert.Contains(t, out, string(ph))
	}
	assert.FileExists(t, filepath.Join(c.Paths.Processed, pipeline.FileIntegratedCSV))
	assert.NoFileExists(t, c.SQLitePath())
}

func TestPhaseCommands_DefaultInputsChain(t *testing.T) {
	c := setTestConfig(t, store.DriverSQLite)
	input := writeInput(t, c.Paths.Raw, sampleCSV)

	_, err := execute(t, cleanCmd, map[string]string{"input": input})
	require.NoError(t, err)
	assert.FileExists(t, defaultCleanedInput())

	_, err = execute(t, enrichCmd, nil)
	require.NoError(t, err)
	assert.FileExists(t, defaultEnrichedInput())

	out, err := execute(t, integrateCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "integrate")
	assert.FileExists(t, filepath.Join(c.Paths.Processed, pipeline.FileIntegratedCSV))

	st, err := store.Open(t.Context(), store.DriverSQLite, c.SQLitePath())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	runs, err := st.ListRuns(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestRunCommand_MissingInput(t *testing.T) {
	c := setTestConfig(t, store.DriverNone)

	out, err := execute(t, runCmd, nil)
	require.Error(t, err)
	assert.Contains(t, out, "failed")
	assert.Contains(t, err.Error(), filepath.Join(c.Paths.Raw, rawInputFile))
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	c := setTestConfig(t, "mysql")
	input := writeInput(t, c.Paths.Raw, sampleCSV)

	_, err := execute(t, runCmd, map[string]string{"input": input})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
	_, statErr := os.Stat(c.Paths.Output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFormatRun(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	run := &model.Run{
		ID:        "abc12345-6789",
		Status:    model.RunStatusFailed,
		RowsIn:    3,
		StartedAt: now,
		Error:     "pipeline: write datos_integrados.csv: disk full",
		Phases: []model.PhaseResult{
			{Name: "clean", Status: model.PhaseStatusComplete, Duration: 12, Metadata: map[string]any{"artifacts": []string{"a", "b"}}},
			{Name: "enrich", Status: model.PhaseStatusFailed, Duration: 3},
		},
	}

	var buf bytes.Buffer
	formatRun(&buf, run)

	out := buf.String()
	assert.Contains(t, out, "Run abc12345-6789: failed (3 rows in, 0 rows out)")
	assert.Contains(t, out, "Error: pipeline: write datos_integrados.csv: disk full")
	assert.Regexp(t, `clean\s+complete\s+12ms\s+2`, out)
	assert.Regexp(t, `enrich\s+failed\s+3ms\s+0`, out)
}

func TestArtifactCount(t *testing.T) {
	assert.Equal(t, 2, artifactCount(map[string]any{"artifacts": []string{"a", "b"}}))
	assert.Equal(t, 1, artifactCount(map[string]any{"artifacts": []any{"a"}}))
	assert.Equal(t, 0, artifactCount(nil))
	assert.Equal(t, 0, artifactCount(map[string]any{"artifacts": "a"}))
}
