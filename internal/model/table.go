package model

import (
	"strconv"
	"strings"
)

// Cell is a nullable table value. Valid is false when the value is absent.
type Cell struct {
	Value string `json:"value"`
	Valid bool   `json:"valid"`
}

// Str returns a present cell holding s.
func Str(s string) Cell { return Cell{Value: s, Valid: true} }

// Null returns an absent cell.
func Null() Cell { return Cell{} }

// Blank reports whether the cell is absent or holds only whitespace.
func (c Cell) Blank() bool {
	return !c.Valid || strings.TrimSpace(c.Value) == ""
}

// Float parses the cell as a float64. The second return is false when the
// cell is absent or not numeric.
func (c Cell) Float() (float64, bool) {
	if !c.Valid {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String renders the cell for writers; absent cells render as "".
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return c.Value
}

// Row is one record, aligned with Table.Columns.
type Row []Cell

// Empty reports whether every cell in the row is absent.
func (r Row) Empty() bool {
	for _, c := range r {
		if c.Valid {
			return false
		}
	}
	return true
}

// Key returns a string uniquely identifying the row's contents, used for
// exact-duplicate detection.
func (r Row) Key() string {
	var b strings.Builder
	for _, c := range r {
		if c.Valid {
			b.WriteByte('1')
			b.WriteString(strconv.Itoa(len(c.Value)))
			b.WriteByte(':')
			b.WriteString(c.Value)
		} else {
			b.WriteByte('0')
		}
		b.WriteByte('|')
	}
	return b.String()
}

// Table is an in-memory rectangular table of nullable strings.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable builds a table from a header and rows, padding or truncating
// each row to the header width.
func NewTable(columns []string, rows []Row) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.Rows = make([]Row, 0, len(rows))
	for _, r := range rows {
		t.Rows = append(t.Rows, fit(r, len(columns)))
	}
	return t
}

func fit(r Row, n int) Row {
	out := make(Row, n)
	copy(out, r)
	return out
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table has the named column.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns all cells of the named column, or nil if it does not exist.
func (t *Table) Column(name string) []Cell {
	idx := t.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]Cell, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// Record returns a read-only view of row i.
func (t *Table) Record(i int) Record {
	return Record{table: t, row: t.Rows[i]}
}

// Record is a by-name view of one table row.
type Record struct {
	table *Table
	row   Row
}

// Get returns the named cell. Unknown columns yield an absent cell.
func (r Record) Get(name string) Cell {
	idx := r.table.Index(name)
	if idx < 0 {
		return Null()
	}
	return r.row[idx]
}
