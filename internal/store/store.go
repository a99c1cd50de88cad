// Package store persists pipeline runs, the enriched company table and the
// analytic summary tables.
package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/empresas-cli/internal/model"
)

// Table names.
const (
	TableRuns          = "ejecuciones"
	TableCompanies     = "empresas"
	TableRegionSummary = "resumen_region"
	TableCitySummary   = "resumen_ciudad"
	TableRiskCounts    = "distribucion_riesgo"
)

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Runs
	SaveRun(ctx context.Context, run *model.Run) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Companies replaces the companies table with t, whose columns become
	// the table schema.
	ReplaceCompanies(ctx context.Context, t *model.Table) (int64, error)

	// WriteSummaries replaces the three summary tables.
	WriteSummaries(ctx context.Context, s Summaries) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Open connects to the configured backend and runs migrations. The none
// driver returns a nil Store.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case DriverNone:
		return nil, nil
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrap(err, "store: create database dir")
			}
		}
		s, err = NewSQLite(dsn)
	case DriverPostgres:
		s, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
