// Package cleaner turns a raw company table into a cleaned one: empty and
// duplicate rows are dropped and every column goes through the cell
// normalizer that matches its role.
package cleaner

import (
	"strings"

	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/normalize"
	"github.com/sells-group/empresas-cli/internal/reference"
)

// Stats summarizes what a Clean call removed.
type Stats struct {
	RowsIn            int      `json:"rows_in"`
	EmptyRows         int      `json:"empty_rows"`
	DuplicateRows     int      `json:"duplicate_rows"`
	RowsOut           int      `json:"rows_out"`
	TextColumns       []string `json:"text_columns"`
	NameColumns       []string `json:"name_columns"`
	PhoneColumns      []string `json:"phone_columns"`
	CityCorrected     bool     `json:"city_corrected"`
	DANECodeValidated bool     `json:"dane_code_validated"`
}

// Cleaner applies the cleaning steps to a table. It is safe for concurrent
// use; Clean never mutates its input.
type Cleaner struct {
	corrector    *normalize.Corrector
	placeholders map[string]bool
}

// New returns a Cleaner backed by the given reference tables.
func New(tables *reference.Tables) *Cleaner {
	ph := make(map[string]bool, len(tables.Placeholders))
	for _, p := range tables.Placeholders {
		ph[strings.ToUpper(p)] = true
	}
	return &Cleaner{
		corrector:    normalize.NewCorrector(tables),
		placeholders: ph,
	}
}

// Clean returns a cleaned copy of t. The steps run in this order:
//  1. Trim column names
//  2. Drop rows where every cell is absent
//  3. NormalizeText on free-text columns (the city column is left raw)
//  4. FixProperNounCasing on name columns ("nombre"/"apellido")
//  5. NormalizeCity on Ciudad_Act
//  6. ValidateDANECode on CodDANE
//  7. NormalizePhone on phone columns ("telefono")
//  8. Placeholder tokens in name columns become absent
//  9. Drop exact duplicates, and rows the steps above left fully absent
func (c *Cleaner) Clean(t *model.Table) (*model.Table, Stats) {
	out := &model.Table{Columns: make([]string, len(t.Columns))}
	for i, col := range t.Columns {
		out.Columns[i] = strings.TrimSpace(col)
	}

	stats := Stats{RowsIn: len(t.Rows)}
	for _, r := range t.Rows {
		if r.Empty() {
			stats.EmptyRows++
			continue
		}
		out.Rows = append(out.Rows, append(model.Row(nil), r...))
	}

	cityIdx := out.Index(model.ColCity)
	var nameIdx []int
	for i, col := range out.Columns {
		lower := strings.ToLower(col)
		if i != cityIdx && InferType(out, i) == TypeText {
			stats.TextColumns = append(stats.TextColumns, col)
			apply(out, i, normalize.NormalizeText)
		}
		if strings.Contains(lower, "nombre") || strings.Contains(lower, "apellido") {
			nameIdx = append(nameIdx, i)
			stats.NameColumns = append(stats.NameColumns, col)
		}
	}
	for _, i := range nameIdx {
		apply(out, i, normalize.FixProperNounCasing)
	}

	if cityIdx >= 0 {
		stats.CityCorrected = true
		apply(out, cityIdx, c.corrector.NormalizeCity)
	}
	if i := out.Index(model.ColDANECode); i >= 0 {
		stats.DANECodeValidated = true
		apply(out, i, normalize.ValidateDANECode)
	}
	for i, col := range out.Columns {
		if strings.Contains(strings.ToLower(col), "telefono") {
			stats.PhoneColumns = append(stats.PhoneColumns, col)
			apply(out, i, normalize.NormalizePhone)
		}
	}

	for _, i := range nameIdx {
		apply(out, i, c.dropPlaceholder)
	}

	out.Rows = c.dedupe(out.Rows, &stats)
	stats.RowsOut = len(out.Rows)
	return out, stats
}

func (c *Cleaner) dropPlaceholder(v model.Cell) model.Cell {
	if v.Valid && c.placeholders[strings.ToUpper(v.Value)] {
		return model.Null()
	}
	return v
}

// dedupe keeps the first occurrence of each row. Rows emptied by cell
// cleaning are dropped too so a cleaned table is a fixed point of Clean.
func (c *Cleaner) dedupe(rows []model.Row, stats *Stats) []model.Row {
	seen := make(map[string]bool, len(rows))
	kept := rows[:0]
	for _, r := range rows {
		if r.Empty() {
			stats.EmptyRows++
			continue
		}
		key := r.Key()
		if seen[key] {
			stats.DuplicateRows++
			continue
		}
		seen[key] = true
		kept = append(kept, r)
	}
	return kept
}

func apply(t *model.Table, col int, fn func(model.Cell) model.Cell) {
	for _, r := range t.Rows {
		r[col] = fn(r[col])
	}
}
