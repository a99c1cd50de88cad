package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/reference"
)

// Corrector resolves city names against the reference correction table and
// the canonical city list.
type Corrector struct {
	tables    *reference.Tables
	canonical map[string]string
}

// NewCorrector builds a Corrector. Corrections are matched in table order.
func NewCorrector(tables *reference.Tables) *Corrector {
	c := &Corrector{
		tables:    tables,
		canonical: make(map[string]string, len(tables.Cities)),
	}
	for _, city := range tables.Cities {
		c.addCanonical(city)
	}
	for _, corr := range tables.Corrections {
		c.addCanonical(corr.City)
	}
	return c
}

func (c *Corrector) addCanonical(city string) {
	key := Fold(city)
	if _, ok := c.canonical[key]; !ok {
		c.canonical[key] = city
	}
}

// NormalizeCity returns the canonical name for a raw city value.
//
// The trimmed raw value (upper-cased) is scanned against the corrections and
// the first pattern it contains wins. Otherwise the value goes through
// NormalizeText, is scanned once more, and if its accent-folded form names a
// canonical city that city's spelling is returned ("BOGOTA" -> "BOGOTÁ").
func (c *Corrector) NormalizeCity(v model.Cell) model.Cell {
	if !v.Valid {
		return v
	}
	raw := strings.ToUpper(strings.TrimSpace(norm.NFC.String(v.Value)))
	if city, ok := c.tables.Correct(raw); ok {
		return model.Str(city)
	}

	out := NormalizeText(v)
	// Punctuation stripped by NormalizeText can expose a pattern; matching
	// again keeps the result stable under a second pass.
	if city, ok := c.tables.Correct(out.Value); ok {
		return model.Str(city)
	}
	if city, ok := c.canonical[Fold(out.Value)]; ok {
		return model.Str(city)
	}
	return out
}
