package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/raw", cfg.Paths.Raw)
	assert.Equal(t, "data/output", cfg.Paths.Output)
	assert.Equal(t, "data/processed", cfg.Paths.Processed)
	assert.Equal(t, "reports", cfg.Paths.Reports)
	assert.Equal(t, "dashboards", cfg.Paths.Dashboards)
	assert.Equal(t, "data/database", cfg.Paths.Database)
	assert.Equal(t, ",", cfg.Input.Delimiter)
	assert.Equal(t, "utf-8", cfg.Input.Encoding)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Download.MaxRetries)
	assert.InDelta(t, 2.0, cfg.Download.RPS, 0.001)
	assert.Len(t, cfg.Pipeline.RelevantFields, 7)
	assert.Equal(t, []string{"Ciudad_Act", "CodDANE"}, cfg.Pipeline.RequiredColumns)
	assert.Equal(t, 4, cfg.Pipeline.OutputConcurrency)
	assert.InDelta(t, 50.0, cfg.Monitoring.LowCompletenessThreshold, 0.001)
	assert.Equal(t, 8501, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.NoError(t, cfg.Validate("pipeline"))
	assert.NoError(t, cfg.Validate("serve"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/empresas
input:
  delimiter: ";"
  encoding: windows-1252
log:
  level: debug
  format: console
pipeline:
  relevant_fields: [Ciudad_Act, CodDANE]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/empresas", cfg.Store.DatabaseURL)
	assert.Equal(t, ';', cfg.DelimiterRune())
	assert.Equal(t, "windows-1252", cfg.Input.Encoding)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"Ciudad_Act", "CodDANE"}, cfg.Pipeline.RelevantFields)
	// Defaults still apply for unset values
	assert.Equal(t, "reports", cfg.Paths.Reports)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("EMPRESAS_STORE_DRIVER", "sqlite")
	t.Setenv("EMPRESAS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("EMPRESAS_SERVER_PORT", "3000")
	t.Setenv("EMPRESAS_MONITORING_WEBHOOK_URL", "https://hooks.example.com/x")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "https://hooks.example.com/x", cfg.Monitoring.WebhookURL)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.ErrorContains(t, err, "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Input.Delimiter = ","
	cfg.Store.Driver = "sqlite"
	cfg.Pipeline.RequiredColumns = []string{"Ciudad_Act", "CodDANE"}
	cfg.Pipeline.OutputConcurrency = 4
	cfg.Monitoring.LowCompletenessThreshold = 50
	cfg.Server.Port = 8501
	return cfg
}

func TestValidatePipeline_Postgres(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("pipeline")
	assert.ErrorContains(t, err, "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/empresas"
	assert.NoError(t, cfg.Validate("pipeline"))
}

func TestValidatePipeline_CollectsAllProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Input.Delimiter = ";;"
	cfg.Pipeline.RequiredColumns = nil
	cfg.Pipeline.OutputConcurrency = 0
	cfg.Monitoring.LowCompletenessThreshold = 120

	err := cfg.Validate("pipeline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql"`)
	assert.Contains(t, err.Error(), "input.delimiter must be a single character")
	assert.Contains(t, err.Error(), "required_columns must not be empty")
	assert.Contains(t, err.Error(), "output_concurrency must be between 1 and 32")
	assert.Contains(t, err.Error(), "low_completeness_threshold must be between 0 and 100")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestSQLitePath(t *testing.T) {
	cfg := validDefaults()
	cfg.Paths.Database = "data/database"
	assert.Equal(t, filepath.Join("data/database", "empresas_colombia.db"), cfg.SQLitePath())

	cfg.Store.DatabaseURL = "/tmp/x.db"
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath())
}

func TestDelimiterRune(t *testing.T) {
	cfg := validDefaults()
	assert.Equal(t, ',', cfg.DelimiterRune())
	cfg.Input.Delimiter = "\t"
	assert.Equal(t, '\t', cfg.DelimiterRune())
	cfg.Input.Delimiter = ""
	assert.Equal(t, ',', cfg.DelimiterRune())
}
