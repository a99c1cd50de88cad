package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Column types understood by both PostgreSQL and SQLite, except
// TypeTimestamp which SQLite tables store as RFC 3339 text.
const (
	TypeText      = "TEXT"
	TypeFloat     = "DOUBLE PRECISION"
	TypeInteger   = "BIGINT"
	TypeTimestamp = "TIMESTAMPTZ"
)

// Column is one column of a TableDef.
type Column struct {
	Name string
	Type string
}

// TableDef describes a table that is recreated wholesale on every write.
// The generated SQL is valid for PostgreSQL and SQLite alike.
type TableDef struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in order.
func (d TableDef) ColumnNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// CreateSQL returns the CREATE TABLE statement.
func (d TableDef) CreateSQL() string {
	return fmt.Sprintf("CREATE TABLE %s (%s)", sanitizeTable(d.Name), d.columnDefs())
}

func (d TableDef) columnDefs() string {
	defs := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Type
	}
	return strings.Join(defs, ", ")
}

// DropSQL returns the DROP TABLE IF EXISTS statement.
func (d TableDef) DropSQL() string {
	return "DROP TABLE IF EXISTS " + sanitizeTable(d.Name)
}

// InsertSQL returns a single-row INSERT statement using bind to render the
// i-th (1-based) placeholder.
func (d TableDef) InsertSQL(bind func(i int) string) string {
	marks := make([]string, len(d.Columns))
	for i := range d.Columns {
		marks[i] = bind(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sanitizeTable(d.Name), quoteAndJoin(d.ColumnNames()), strings.Join(marks, ", "))
}

// Dollar renders PostgreSQL placeholders.
func Dollar(i int) string { return fmt.Sprintf("$%d", i) }

// Question renders SQLite placeholders.
func Question(int) string { return "?" }
