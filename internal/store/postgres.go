package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/empresas-cli/internal/db"
	"github.com/sells-group/empresas-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// A run issues a handful of sequential statements; a small pool suffices.
	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ejecuciones (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	rows_in      BIGINT NOT NULL DEFAULT 0,
	rows_out     BIGINT NOT NULL DEFAULT 0,
	phases       TEXT NOT NULL DEFAULT '[]',
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	error        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_ejecuciones_started_at ON ejecuciones(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	phases, err := json.Marshal(run.Phases)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal phases")
	}
	var completed any
	if !run.CompletedAt.IsZero() {
		completed = run.CompletedAt.UTC()
	}

	_, err = db.Upsert(ctx, s.pool, runsDef, []string{"id"}, [][]any{{
		run.ID, run.Source, string(run.Status), int64(run.RowsIn), int64(run.RowsOut),
		string(phases), run.StartedAt.UTC(), completed, run.Error,
	}})
	if err != nil {
		return eris.Wrapf(err, "postgres: save run %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, status, rows_in, rows_out, phases, started_at, completed_at, error
		FROM ejecuciones ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var (
			r         model.Run
			status    string
			in, out   int64
			phases    string
			completed *time.Time
		)
		if err := rows.Scan(&r.ID, &r.Source, &status, &in, &out, &phases, &r.StartedAt, &completed, &r.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		r.RowsIn, r.RowsOut = int(in), int(out)
		if completed != nil {
			r.CompletedAt = *completed
		}
		if err := json.Unmarshal([]byte(phases), &r.Phases); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal phases")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list runs iterate")
	}
	return runs, nil
}

func (s *PostgresStore) ReplaceCompanies(ctx context.Context, t *model.Table) (int64, error) {
	def, rows := companiesTable(t)
	n, err := db.ReplaceTable(ctx, s.pool, def, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: replace companies")
	}
	return n, nil
}

func (s *PostgresStore) WriteSummaries(ctx context.Context, sum Summaries) error {
	for _, st := range sum.tables() {
		if _, err := db.ReplaceTable(ctx, s.pool, st.def, st.rows); err != nil {
			return eris.Wrap(err, "postgres: write summaries")
		}
	}
	return nil
}
