package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Input      InputConfig      `yaml:"input" mapstructure:"input"`
	Download   DownloadConfig   `yaml:"download" mapstructure:"download"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Reference  ReferenceConfig  `yaml:"reference" mapstructure:"reference"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// PathsConfig holds the working directories of each phase.
type PathsConfig struct {
	Raw        string `yaml:"raw" mapstructure:"raw"`
	Output     string `yaml:"output" mapstructure:"output"`
	Processed  string `yaml:"processed" mapstructure:"processed"`
	Reports    string `yaml:"reports" mapstructure:"reports"`
	Dashboards string `yaml:"dashboards" mapstructure:"dashboards"`
	Database   string `yaml:"database" mapstructure:"database"`
}

// InputConfig controls how input spreadsheets are parsed.
type InputConfig struct {
	Sheet      string `yaml:"sheet" mapstructure:"sheet"`
	SheetIndex int    `yaml:"sheet_index" mapstructure:"sheet_index"`
	Delimiter  string `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding   string `yaml:"encoding" mapstructure:"encoding"`
}

// DownloadConfig configures fetching of remote inputs.
type DownloadConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ReferenceConfig points at an optional reference-table overlay.
type ReferenceConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// PipelineConfig configures the processing stages.
type PipelineConfig struct {
	RelevantFields    []string `yaml:"relevant_fields" mapstructure:"relevant_fields"`
	RequiredColumns   []string `yaml:"required_columns" mapstructure:"required_columns"`
	OutputConcurrency int      `yaml:"output_concurrency" mapstructure:"output_concurrency"`
}

// MonitoringConfig configures quality alerts.
type MonitoringConfig struct {
	LowCompletenessThreshold float64 `yaml:"low_completeness_threshold" mapstructure:"low_completeness_threshold"`
	WebhookURL               string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	WebhookRPS               float64 `yaml:"webhook_rps" mapstructure:"webhook_rps"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EMPRESAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.raw", "data/raw")
	v.SetDefault("paths.output", "data/output")
	v.SetDefault("paths.processed", "data/processed")
	v.SetDefault("paths.reports", "reports")
	v.SetDefault("paths.dashboards", "dashboards")
	v.SetDefault("paths.database", "data/database")
	v.SetDefault("input.sheet", "")
	v.SetDefault("input.sheet_index", 0)
	v.SetDefault("input.delimiter", ",")
	v.SetDefault("input.encoding", "utf-8")
	v.SetDefault("download.user_agent", "empresas-cli/1.0")
	v.SetDefault("download.timeout_secs", 60)
	v.SetDefault("download.max_retries", 3)
	v.SetDefault("download.rps", 2.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("reference.file", "")
	v.SetDefault("pipeline.relevant_fields", []string{
		"NombresGerenteGeneral_Act", "ApellidosGerenteGeneral_Act",
		"NombresGerenteFinanciero_Act", "ApellidosGerenteFinanciero_Act",
		"Ciudad_Act", "CodDANE", "Telefono_Act1",
	})
	v.SetDefault("pipeline.required_columns", []string{"Ciudad_Act", "CodDANE"})
	v.SetDefault("pipeline.output_concurrency", 4)
	v.SetDefault("monitoring.low_completeness_threshold", 50.0)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.webhook_rps", 1.0)
	v.SetDefault("server.port", 8501)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given mode. Modes are
// "pipeline" (clean, enrich, integrate, run) and "serve". All problems are
// reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Pipeline.OutputConcurrency < 1 || c.Pipeline.OutputConcurrency > 32 {
		errs = append(errs, "pipeline.output_concurrency must be between 1 and 32")
	}
	if c.Monitoring.LowCompletenessThreshold < 0 || c.Monitoring.LowCompletenessThreshold > 100 {
		errs = append(errs, "monitoring.low_completeness_threshold must be between 0 and 100")
	}

	switch mode {
	case "pipeline":
		switch c.Store.Driver {
		case "sqlite", "none":
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for the postgres driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
		}
		if utf8.RuneCountInString(c.Input.Delimiter) != 1 {
			errs = append(errs, "input.delimiter must be a single character")
		}
		if len(c.Pipeline.RequiredColumns) == 0 {
			errs = append(errs, "pipeline.required_columns must not be empty")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SQLitePath returns the SQLite database file: store.database_url when
// set, otherwise empresas_colombia.db under paths.database.
func (c *Config) SQLitePath() string {
	if c.Store.DatabaseURL != "" {
		return c.Store.DatabaseURL
	}
	return filepath.Join(c.Paths.Database, "empresas_colombia.db")
}

// DelimiterRune returns the CSV delimiter, defaulting to a comma.
func (c *Config) DelimiterRune() rune {
	r, size := utf8.DecodeRuneInString(c.Input.Delimiter)
	if size == 0 || r == utf8.RuneError {
		return ','
	}
	return r
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
