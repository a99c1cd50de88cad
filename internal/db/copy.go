package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using PostgreSQL COPY protocol.
// table may be schema-qualified ("analytics.empresas").
func CopyFrom(ctx context.Context, c Copier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copySource := pgx.CopyFromRows(rows)
	n, err := c.CopyFrom(ctx, identifier(table), columns, copySource)
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}

// ReplaceTable drops and recreates def, then COPYs rows into it, all in
// one transaction.
func ReplaceTable(ctx context.Context, pool Pool, def TableDef, rows [][]any) (int64, error) {
	if len(def.Columns) == 0 {
		return 0, eris.Errorf("db: replace %s: no columns specified", def.Name)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: replace %s: begin tx", def.Name)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, def.DropSQL()); err != nil {
		return 0, eris.Wrapf(err, "db: replace %s: drop", def.Name)
	}
	if _, err := tx.Exec(ctx, def.CreateSQL()); err != nil {
		return 0, eris.Wrapf(err, "db: replace %s: create", def.Name)
	}
	n, err := CopyFrom(ctx, tx, def.Name, def.ColumnNames(), rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: replace %s: commit tx", def.Name)
	}
	return n, nil
}

func identifier(table string) pgx.Identifier {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}
