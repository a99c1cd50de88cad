package analysis

import (
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/empresas-cli/internal/cleaner"
	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/reference"
)

// DictionaryEntry documents one column of the cleaned table.
type DictionaryEntry struct {
	Field       string `json:"campo"`
	Type        string `json:"tipo"`
	Description string `json:"descripcion"`
	Constraints string `json:"restricciones"`
	Example     string `json:"ejemplo"`
	Unique      int    `json:"valores_unicos"`
}

// Dictionary builds the data dictionary of t. The example is taken from
// the first row.
func Dictionary(t *model.Table, ref *reference.Tables) []DictionaryEntry {
	out := make([]DictionaryEntry, len(t.Columns))
	for i, col := range t.Columns {
		e := DictionaryEntry{
			Field:       col,
			Type:        string(cleaner.InferType(t, i)),
			Description: ref.Descriptions[col],
			Constraints: ref.Constraints[col],
			Unique:      len(valueCounts(t.Column(col))),
		}
		if t.Len() > 0 {
			e.Example = t.Rows[0][i].String()
		}
		out[i] = e
	}
	return out
}

// DictionaryTable renders entries as a table for the tabular writers.
func DictionaryTable(entries []DictionaryEntry) *model.Table {
	rows := make([]model.Row, len(entries))
	for i, e := range entries {
		rows[i] = model.Row{
			model.Str(e.Field),
			model.Str(e.Type),
			model.Str(e.Description),
			model.Str(e.Constraints),
			model.Str(e.Example),
			model.Str(strconv.Itoa(e.Unique)),
		}
	}
	return model.NewTable(
		[]string{"Campo", "Tipo", "Descripción", "Restricciones", "Ejemplo", "Valores_Unicos"},
		rows,
	)
}

// CanonicalCities lists the canonical city names in Spanish collation
// order as a one-column table.
func CanonicalCities(ref *reference.Tables) *model.Table {
	cities := append([]string(nil), ref.Cities...)
	collate.New(language.Spanish).SortStrings(cities)

	rows := make([]model.Row, len(cities))
	for i, c := range cities {
		rows[i] = model.Row{model.Str(c)}
	}
	return model.NewTable([]string{"Ciudad_Normalizada"}, rows)
}
