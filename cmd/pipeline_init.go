package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/empresas-cli/internal/pipeline"
	"github.com/sells-group/empresas-cli/internal/reference"
	"github.com/sells-group/empresas-cli/internal/store"
)

// pipelineEnv holds the store and pipeline needed by the phase commands.
type pipelineEnv struct {
	Store    store.Store // nil with the none driver
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config, opens the store and builds the
// Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("pipeline"); err != nil {
		return nil, err
	}

	tables, err := loadReference(cfg.Reference.File)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(cfg, tables, st)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, err
	}
	return &pipelineEnv{Store: st, Pipeline: p}, nil
}

// initStore opens the configured store. It returns nil for the none driver.
func initStore(ctx context.Context) (store.Store, error) {
	dsn := cfg.Store.DatabaseURL
	if cfg.Store.Driver == store.DriverSQLite {
		dsn = cfg.SQLitePath()
	}
	st, err := store.Open(ctx, cfg.Store.Driver, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if st == nil {
		zap.L().Debug("store disabled")
	}
	return st, nil
}

// loadReference returns the built-in reference tables, overlaid with file
// when it is not empty.
func loadReference(file string) (*reference.Tables, error) {
	if file == "" {
		return reference.Default(), nil
	}
	t, err := reference.LoadFile(file)
	if err != nil {
		return nil, eris.Wrapf(err, "load reference tables %s", file)
	}
	zap.L().Info("reference tables loaded", zap.String("file", file))
	return t, nil
}
