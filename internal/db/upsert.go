package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert writes rows into def, overwriting the non-key columns of any row
// whose keys already exist. Rows travel by COPY into a transaction-scoped
// temp table and are merged with a single INSERT ... SELECT.
func Upsert(ctx context.Context, pool Pool, def TableDef, keys []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(def.Columns) == 0 {
		return 0, eris.Errorf("db: upsert %s: no columns specified", def.Name)
	}
	if len(keys) == 0 {
		return 0, eris.Errorf("db: upsert %s: no conflict keys specified", def.Name)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: begin tx", def.Name)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	staging := def.staging()
	if _, err := tx.Exec(ctx, staging.createTempSQL()); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: create staging table", def.Name)
	}
	if _, err := CopyFrom(ctx, tx, staging.Name, def.ColumnNames(), rows); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s", def.Name)
	}

	cols := quoteAndJoin(def.ColumnNames())
	merge := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		sanitizeTable(def.Name), cols, cols, pgx.Identifier{staging.Name}.Sanitize()) +
		onConflict(def.ColumnNames(), keys)
	tag, err := tx.Exec(ctx, merge)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: merge", def.Name)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: commit tx", def.Name)
	}
	return tag.RowsAffected(), nil
}

// UpsertSQL returns a single-row INSERT that overwrites the non-key columns
// when keys collide. The ON CONFLICT form is shared by PostgreSQL and SQLite.
func (d TableDef) UpsertSQL(bind func(i int) string, keys ...string) string {
	return d.InsertSQL(bind) + onConflict(d.ColumnNames(), keys)
}

// staging names the temp table an upsert into d copies through.
func (d TableDef) staging() TableDef {
	return TableDef{
		Name:    "_tmp_upsert_" + strings.ReplaceAll(d.Name, ".", "_"),
		Columns: d.Columns,
	}
}

func (d TableDef) createTempSQL() string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (%s) ON COMMIT DROP",
		pgx.Identifier{d.Name}.Sanitize(), d.columnDefs())
}

func onConflict(cols, keys []string) string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var set []string
	for _, c := range cols {
		if !isKey[c] {
			q := pgx.Identifier{c}.Sanitize()
			set = append(set, q+" = EXCLUDED."+q)
		}
	}
	if len(set) == 0 {
		return fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", quoteAndJoin(keys))
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", quoteAndJoin(keys), strings.Join(set, ", "))
}

// sanitizeTable quotes a possibly schema-qualified name ("analytics.empresas").
func sanitizeTable(table string) string {
	return identifier(table).Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
