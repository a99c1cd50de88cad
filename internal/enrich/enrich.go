// Package enrich derives the per-company attributes of a cleaned table:
// identifiers, region, size, completeness, the reference-data join and the
// risk score.
package enrich

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/reference"
)

// Enricher derives company attributes from reference tables. It holds no
// mutable state and every method returns a new value.
type Enricher struct {
	tables *reference.Tables
	fields []string
	now    func() time.Time
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithClock overrides the clock used for IDs and the processing date.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) { e.now = now }
}

// WithRelevantFields overrides the columns counted by Completeness.
func WithRelevantFields(fields []string) Option {
	return func(e *Enricher) {
		if len(fields) > 0 {
			e.fields = append([]string(nil), fields...)
		}
	}
}

// New returns an Enricher over tables.
func New(tables *reference.Tables, opts ...Option) *Enricher {
	e := &Enricher{tables: tables, fields: DefaultRelevantFields, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Region maps the leading digit of a DANE code to its region. An absent code
// is UNKNOWN and an unmapped digit is OTHER.
func (e *Enricher) Region(code model.Cell) model.Region {
	if code.Blank() {
		return model.RegionUnknown
	}
	if r, ok := e.tables.Regions[strings.TrimSpace(code.Value)[:1]]; ok {
		return r
	}
	return model.RegionOther
}

// SizeCategory classifies a company by its city: principal cities are
// LARGE, secondary cities MEDIUM and everything else SMALL.
func (e *Enricher) SizeCategory(city model.Cell) model.SizeCategory {
	if !city.Valid {
		return model.SizeSmall
	}
	switch {
	case e.tables.IsPrincipal(city.Value):
		return model.SizeLarge
	case e.tables.IsSecondary(city.Value):
		return model.SizeMedium
	}
	return model.SizeSmall
}

// Enrich attaches ID, region, size, processing date and completeness to
// every row of a cleaned table.
func (e *Enricher) Enrich(t *model.Table) *model.Dataset {
	now := e.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	ids := IDs(now, t.Len())

	ds := &model.Dataset{Table: t.Clone(), Companies: make([]model.Company, t.Len())}
	for i := range ds.Companies {
		rec := ds.Record(i)
		ds.Companies[i] = model.Company{
			ID:           ids[i],
			Region:       e.Region(rec.Get(model.ColDANECode)),
			Size:         e.SizeCategory(rec.Get(model.ColCity)),
			ProcessedAt:  day,
			Completeness: Completeness(rec, e.fields),
		}
	}
	return ds
}

// JoinReference left-joins the economic indicators on region, the
// demographics on city and the business climate on region. Unmatched keys
// leave the joined values nil; no row is ever dropped.
func (e *Enricher) JoinReference(ds *model.Dataset) *model.Dataset {
	out := ds.Clone()
	for i := range out.Companies {
		c := &out.Companies[i]
		c.Economic, c.Demographic = nil, nil
		if ind, ok := e.tables.Economic[c.Region]; ok {
			c.Economic = &ind
		}
		if city := out.Record(i).Get(model.ColCity); city.Valid {
			if demo, ok := e.tables.Demographic[city.Value]; ok {
				c.Demographic = &demo
			}
		}
		c.Climate = e.tables.ClimateFor(c.Region)
	}
	return out
}

// ScoreRisk sets the risk score and level of every company.
func (e *Enricher) ScoreRisk(ds *model.Dataset) *model.Dataset {
	out := ds.Clone()
	for i := range out.Companies {
		c := &out.Companies[i]
		c.RiskScore = RiskScore(Signals{
			Completeness: c.Completeness,
			Region:       c.Region,
			Size:         c.Size,
			HighRisk:     e.tables.IsHighRisk(c.Region),
		})
		c.RiskLevel = RiskLevelFor(c.RiskScore)
	}
	return out
}

// IDs returns n company identifiers "EMP%08d". The numeric base is the
// SHA-256 of the run timestamp modulo 10^8; row i gets base+i.
func IDs(now time.Time, n int) []string {
	sum := sha256.Sum256([]byte(now.Format("20060102150405")))
	base := new(big.Int).Mod(new(big.Int).SetBytes(sum[:]), big.NewInt(100_000_000)).Int64()

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("EMP%08d", base+int64(i))
	}
	return ids
}
