package store

import (
	"math"
	"sort"
	"strconv"

	"github.com/sells-group/empresas-cli/internal/db"
	"github.com/sells-group/empresas-cli/internal/model"
)

// RegionSummary is one row of resumen_region.
type RegionSummary struct {
	Region          string
	Total           int
	AvgRisk         float64
	AvgCompleteness float64
	AvgGDP          *float64 // nil when no company in the region has GDP data
}

// CitySummary is one row of resumen_ciudad.
type CitySummary struct {
	City            string
	Total           int
	AvgRisk         float64
	AvgCompleteness float64
}

// RiskCount is one row of distribucion_riesgo.
type RiskCount struct {
	Level string
	Count int
}

// Summaries are the analytic tables derived from an enriched dataset.
type Summaries struct {
	Regions []RegionSummary
	Cities  []CitySummary
	Risk    []RiskCount
}

type accumulator struct {
	n              int
	risk, complete float64
	gdp            float64
	gdpN           int
}

func (a *accumulator) add(c model.Company) {
	a.n++
	a.risk += float64(c.RiskScore)
	a.complete += c.Completeness
	if c.Economic != nil {
		a.gdp += c.Economic.GDPPerCapita
		a.gdpN++
	}
}

// BuildSummaries groups ds by region, city and risk level. Groups are
// ordered by key; risk levels by descending count, ties in level order.
// Companies without a city are left out of the city summary.
func BuildSummaries(ds *model.Dataset) Summaries {
	regions := make(map[string]*accumulator)
	cities := make(map[string]*accumulator)
	risk := make(map[model.RiskLevel]int)

	group := func(m map[string]*accumulator, key string) *accumulator {
		a, ok := m[key]
		if !ok {
			a = &accumulator{}
			m[key] = a
		}
		return a
	}

	for i, c := range ds.Companies {
		group(regions, string(c.Region)).add(c)
		if city := ds.Record(i).Get(model.ColCity); city.Valid {
			group(cities, city.Value).add(c)
		}
		if c.RiskLevel != "" {
			risk[c.RiskLevel]++
		}
	}

	var s Summaries
	for _, key := range sortedKeys(regions) {
		a := regions[key]
		r := RegionSummary{
			Region:          key,
			Total:           a.n,
			AvgRisk:         round2(a.risk / float64(a.n)),
			AvgCompleteness: round2(a.complete / float64(a.n)),
		}
		if a.gdpN > 0 {
			gdp := round2(a.gdp / float64(a.gdpN))
			r.AvgGDP = &gdp
		}
		s.Regions = append(s.Regions, r)
	}
	for _, key := range sortedKeys(cities) {
		a := cities[key]
		s.Cities = append(s.Cities, CitySummary{
			City:            key,
			Total:           a.n,
			AvgRisk:         round2(a.risk / float64(a.n)),
			AvgCompleteness: round2(a.complete / float64(a.n)),
		})
	}

	for _, lv := range model.RiskLevels {
		if n := risk[lv]; n > 0 {
			s.Risk = append(s.Risk, RiskCount{Level: string(lv), Count: n})
		}
	}
	sort.SliceStable(s.Risk, func(i, j int) bool { return s.Risk[i].Count > s.Risk[j].Count })
	return s
}

func sortedKeys(m map[string]*accumulator) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

var (
	// runsDef mirrors the ejecuciones migrations. SQLite keeps the
	// timestamps as text.
	runsDef = db.TableDef{
		Name: TableRuns,
		Columns: []db.Column{
			{Name: "id", Type: db.TypeText},
			{Name: "source", Type: db.TypeText},
			{Name: "status", Type: db.TypeText},
			{Name: "rows_in", Type: db.TypeInteger},
			{Name: "rows_out", Type: db.TypeInteger},
			{Name: "phases", Type: db.TypeText},
			{Name: "started_at", Type: db.TypeTimestamp},
			{Name: "completed_at", Type: db.TypeTimestamp},
			{Name: "error", Type: db.TypeText},
		},
	}
	regionSummaryDef = db.TableDef{
		Name: TableRegionSummary,
		Columns: []db.Column{
			{Name: model.ColRegion, Type: db.TypeText},
			{Name: "Total_Empresas", Type: db.TypeInteger},
			{Name: model.ColRiskScore, Type: db.TypeFloat},
			{Name: model.ColCompleteness, Type: db.TypeFloat},
			{Name: model.ColGDPPerCapita, Type: db.TypeFloat},
		},
	}
	citySummaryDef = db.TableDef{
		Name: TableCitySummary,
		Columns: []db.Column{
			{Name: model.ColCity, Type: db.TypeText},
			{Name: "Total_Empresas", Type: db.TypeInteger},
			{Name: model.ColRiskScore, Type: db.TypeFloat},
			{Name: model.ColCompleteness, Type: db.TypeFloat},
		},
	}
	riskCountsDef = db.TableDef{
		Name: TableRiskCounts,
		Columns: []db.Column{
			{Name: model.ColRiskLevel, Type: db.TypeText},
			{Name: "Cantidad", Type: db.TypeInteger},
		},
	}
)

// summaryTable pairs a definition with its rows.
type summaryTable struct {
	def  db.TableDef
	rows [][]any
}

func (s Summaries) tables() []summaryTable {
	regions := make([][]any, len(s.Regions))
	for i, r := range s.Regions {
		var gdp any
		if r.AvgGDP != nil {
			gdp = *r.AvgGDP
		}
		regions[i] = []any{r.Region, int64(r.Total), r.AvgRisk, r.AvgCompleteness, gdp}
	}
	cities := make([][]any, len(s.Cities))
	for i, c := range s.Cities {
		cities[i] = []any{c.City, int64(c.Total), c.AvgRisk, c.AvgCompleteness}
	}
	risk := make([][]any, len(s.Risk))
	for i, r := range s.Risk {
		risk[i] = []any{r.Level, int64(r.Count)}
	}
	return []summaryTable{
		{def: regionSummaryDef, rows: regions},
		{def: citySummaryDef, rows: cities},
		{def: riskCountsDef, rows: risk},
	}
}

// numericColumns types the derived numeric columns of the companies
// table. Every other column, input columns included, is stored as text so
// codes keep their leading zeros.
var numericColumns = map[string]string{
	model.ColCompleteness: db.TypeFloat,
	model.ColGDPPerCapita: db.TypeFloat,
	model.ColUnemployment: db.TypeFloat,
	model.ColGrowth:       db.TypeFloat,
	model.ColPopulation:   db.TypeInteger,
	model.ColDensity:      db.TypeInteger,
	model.ColRiskScore:    db.TypeInteger,
}

// companiesTable converts t into the companies table definition and rows.
func companiesTable(t *model.Table) (db.TableDef, [][]any) {
	def := db.TableDef{Name: TableCompanies, Columns: make([]db.Column, len(t.Columns))}
	for i, c := range t.Columns {
		typ, ok := numericColumns[c]
		if !ok {
			typ = db.TypeText
		}
		def.Columns[i] = db.Column{Name: c, Type: typ}
	}

	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		vals := make([]any, len(r))
		for j, cell := range r {
			vals[j] = cellValue(cell, def.Columns[j].Type)
		}
		rows[i] = vals
	}
	return def, rows
}

// cellValue converts a cell for a column of type typ. Absent or
// unparseable numeric cells become NULL.
func cellValue(c model.Cell, typ string) any {
	if !c.Valid {
		return nil
	}
	switch typ {
	case db.TypeFloat:
		if f, ok := c.Float(); ok {
			return f
		}
		return nil
	case db.TypeInteger:
		if n, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
			return n
		}
		if f, ok := c.Float(); ok && f == math.Trunc(f) {
			return int64(f)
		}
		return nil
	}
	return c.Value
}
