package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/empresas-cli/internal/db"
	"github.com/sells-group/empresas-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

// Timestamps are stored as RFC 3339 text.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ejecuciones (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	rows_in      INTEGER NOT NULL DEFAULT 0,
	rows_out     INTEGER NOT NULL DEFAULT 0,
	phases       TEXT NOT NULL DEFAULT '[]',
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	error        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_ejecuciones_started_at ON ejecuciones(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	phases, err := json.Marshal(run.Phases)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal phases")
	}

	var completed sql.NullString
	if !run.CompletedAt.IsZero() {
		completed = sql.NullString{String: run.CompletedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, runsDef.UpsertSQL(db.Question, "id"),
		run.ID, run.Source, string(run.Status), run.RowsIn, run.RowsOut, string(phases),
		run.StartedAt.UTC().Format(time.RFC3339Nano), completed, run.Error,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save run %s", run.ID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, status, rows_in, rows_out, phases, started_at, completed_at, error
		FROM ejecuciones ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs iterate")
	}
	return runs, nil
}

func (s *SQLiteStore) ReplaceCompanies(ctx context.Context, t *model.Table) (int64, error) {
	def, rows := companiesTable(t)
	return s.replaceTable(ctx, def, rows)
}

func (s *SQLiteStore) WriteSummaries(ctx context.Context, sum Summaries) error {
	for _, st := range sum.tables() {
		if _, err := s.replaceTable(ctx, st.def, st.rows); err != nil {
			return err
		}
	}
	return nil
}

// replaceTable drops and recreates def and inserts rows in one transaction.
func (s *SQLiteStore) replaceTable(ctx context.Context, def db.TableDef, rows [][]any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: replace %s: begin tx", def.Name)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, def.DropSQL()); err != nil {
		return 0, eris.Wrapf(err, "sqlite: replace %s: drop", def.Name)
	}
	if _, err := tx.ExecContext(ctx, def.CreateSQL()); err != nil {
		return 0, eris.Wrapf(err, "sqlite: replace %s: create", def.Name)
	}

	stmt, err := tx.PrepareContext(ctx, def.InsertSQL(db.Question))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: replace %s: prepare insert", def.Name)
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: replace %s: insert row %d", def.Name, i)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: replace %s: commit tx", def.Name)
	}
	return int64(len(rows)), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r               model.Run
		phases, started string
		completed       sql.NullString
	)
	err := row.Scan(&r.ID, &r.Source, &r.Status, &r.RowsIn, &r.RowsOut, &phases, &started, &completed, &r.Error)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(phases), &r.Phases); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal phases")
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse started_at")
	}
	if completed.Valid {
		if r.CompletedAt, err = time.Parse(time.RFC3339Nano, completed.String); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse completed_at")
		}
	}
	return &r, nil
}
