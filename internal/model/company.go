package model

import (
	"strconv"
	"time"
)

// Input column names of the company spreadsheet.
const (
	ColCity                   = "Ciudad_Act"
	ColDANECode               = "CodDANE"
	ColPhone1                 = "Telefono_Act1"
	ColPhone2                 = "Telefono_Act2"
	ColGeneralManagerNames    = "NombresGerenteGeneral_Act"
	ColGeneralManagerSurnames = "ApellidosGerenteGeneral_Act"
	ColFinanceManagerNames    = "NombresGerenteFinanciero_Act"
	ColFinanceManagerSurnames = "ApellidosGerenteFinanciero_Act"
)

// Derived column names, in output order.
const (
	ColID             = "ID_Empresa"
	ColRegion         = "Region"
	ColSize           = "Tamano_Empresa"
	ColProcessedAt    = "Fecha_Procesamiento"
	ColCompleteness   = "Porcentaje_Completitud"
	ColGDPPerCapita   = "PIB_Per_Capita"
	ColUnemployment   = "Tasa_Desempleo"
	ColGrowth         = "Crecimiento_Economico"
	ColPopulation     = "Poblacion"
	ColDensity        = "Densidad_Poblacion"
	ColClimate        = "Clima_Empresarial"
	ColRiskScore      = "Puntuacion_Riesgo"
	ColRiskLevel      = "Nivel_Riesgo"
	ProcessedAtLayout = "2006-01-02"
)

// DerivedColumns lists the derived columns appended to the cleaned table.
var DerivedColumns = []string{
	ColID, ColRegion, ColSize, ColProcessedAt, ColCompleteness,
	ColGDPPerCapita, ColUnemployment, ColGrowth, ColPopulation, ColDensity,
	ColClimate, ColRiskScore, ColRiskLevel,
}

// Region is a coarse geographic bucket derived from the DANE code.
type Region string

const (
	RegionUnknown Region = "UNKNOWN"
	RegionOther   Region = "OTHER"
)

// SizeCategory is the company-size bucket derived from the city.
type SizeCategory string

const (
	SizeSmall  SizeCategory = "SMALL"
	SizeMedium SizeCategory = "MEDIUM"
	SizeLarge  SizeCategory = "LARGE"
)

// RiskLevel is the ordinal bucket of a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskLevels lists every level in ascending order.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// EconomicIndicators are the per-region economic reference values.
type EconomicIndicators struct {
	GDPPerCapita float64 `json:"gdp_per_capita" yaml:"gdp_per_capita"`
	Unemployment float64 `json:"unemployment" yaml:"unemployment"`
	Growth       float64 `json:"growth" yaml:"growth"`
}

// Demographics are the per-city demographic reference values.
type Demographics struct {
	Population int `json:"population" yaml:"population"`
	Density    int `json:"density" yaml:"density"`
}

// Company holds the derived attributes of one cleaned record.
type Company struct {
	ID           string              `json:"id"`
	Region       Region              `json:"region"`
	Size         SizeCategory        `json:"size"`
	ProcessedAt  time.Time           `json:"processed_at"`
	Completeness float64             `json:"completeness"`
	Economic     *EconomicIndicators `json:"economic,omitempty"`
	Demographic  *Demographics       `json:"demographic,omitempty"`
	Climate      string              `json:"climate,omitempty"`
	RiskScore    int                 `json:"risk_score"`
	RiskLevel    RiskLevel           `json:"risk_level"`
}

// Dataset pairs a cleaned table with the derived attributes of each row.
// Companies[i] describes Table.Rows[i].
type Dataset struct {
	Table     *Table    `json:"table"`
	Companies []Company `json:"companies"`
}

// Record returns the by-name view of row i.
func (d *Dataset) Record(i int) Record { return d.Table.Record(i) }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Companies) }

// Clone deep-copies the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Table: d.Table.Clone(), Companies: make([]Company, len(d.Companies))}
	for i, c := range d.Companies {
		if c.Economic != nil {
			e := *c.Economic
			c.Economic = &e
		}
		if c.Demographic != nil {
			dm := *c.Demographic
			c.Demographic = &dm
		}
		out.Companies[i] = c
	}
	return out
}

// ToTable renders the dataset with the derived columns appended in
// DerivedColumns order. Derived columns already present in the source
// table are replaced, not duplicated.
func (d *Dataset) ToTable() *Table {
	var keep []int
	var cols []string
	derived := make(map[string]bool, len(DerivedColumns))
	for _, c := range DerivedColumns {
		derived[c] = true
	}
	for i, c := range d.Table.Columns {
		if derived[c] {
			continue
		}
		keep = append(keep, i)
		cols = append(cols, c)
	}
	cols = append(cols, DerivedColumns...)

	out := &Table{Columns: cols, Rows: make([]Row, len(d.Table.Rows))}
	for i, src := range d.Table.Rows {
		row := make(Row, 0, len(cols))
		for _, k := range keep {
			row = append(row, src[k])
		}
		row = append(row, d.Companies[i].cells()...)
		out.Rows[i] = row
	}
	return out
}

func (c Company) cells() Row {
	row := Row{
		Str(c.ID),
		Str(string(c.Region)),
		Str(string(c.Size)),
		processedAtCell(c.ProcessedAt),
		Str(FormatFloat(c.Completeness)),
	}
	if c.Economic != nil {
		row = append(row,
			Str(FormatFloat(c.Economic.GDPPerCapita)),
			Str(FormatFloat(c.Economic.Unemployment)),
			Str(FormatFloat(c.Economic.Growth)),
		)
	} else {
		row = append(row, Null(), Null(), Null())
	}
	if c.Demographic != nil {
		row = append(row,
			Str(strconv.Itoa(c.Demographic.Population)),
			Str(strconv.Itoa(c.Demographic.Density)),
		)
	} else {
		row = append(row, Null(), Null())
	}
	climate := Null()
	if c.Climate != "" {
		climate = Str(c.Climate)
	}
	// Score and level are only meaningful once the risk stage has run.
	score, level := Null(), Null()
	if c.RiskLevel != "" {
		score = Str(strconv.Itoa(c.RiskScore))
		level = Str(string(c.RiskLevel))
	}
	return append(row, climate, score, level)
}

func processedAtCell(t time.Time) Cell {
	if t.IsZero() {
		return Null()
	}
	return Str(t.Format(ProcessedAtLayout))
}

// FormatFloat renders a float the way the spreadsheet exports do: integral
// values keep one decimal ("100.0"), others use the shortest representation.
func FormatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// DatasetFromTable is the inverse of ToTable: it lifts any derived columns
// present in t back into Companies and returns the remaining columns as the
// dataset table. Unparseable derived values are left at their zero value.
func DatasetFromTable(t *Table) *Dataset {
	derived := make(map[string]int)
	var keep []int
	var cols []string
	isDerived := make(map[string]bool, len(DerivedColumns))
	for _, c := range DerivedColumns {
		isDerived[c] = true
	}
	for i, c := range t.Columns {
		if isDerived[c] {
			derived[c] = i
			continue
		}
		keep = append(keep, i)
		cols = append(cols, c)
	}

	ds := &Dataset{
		Table:     &Table{Columns: cols, Rows: make([]Row, len(t.Rows))},
		Companies: make([]Company, len(t.Rows)),
	}
	for i, src := range t.Rows {
		row := make(Row, 0, len(keep))
		for _, k := range keep {
			row = append(row, src[k])
		}
		ds.Table.Rows[i] = row
		ds.Companies[i] = companyFromRow(src, derived)
	}
	return ds
}

func companyFromRow(src Row, idx map[string]int) Company {
	get := func(name string) Cell {
		if i, ok := idx[name]; ok {
			return src[i]
		}
		return Null()
	}
	c := Company{
		ID:      get(ColID).Value,
		Region:  Region(get(ColRegion).Value),
		Size:    SizeCategory(get(ColSize).Value),
		Climate: get(ColClimate).Value,
	}
	if at := get(ColProcessedAt); at.Valid {
		if ts, err := time.Parse(ProcessedAtLayout, at.Value); err == nil {
			c.ProcessedAt = ts
		}
	}
	if f, ok := get(ColCompleteness).Float(); ok {
		c.Completeness = f
	}
	gdp, okG := get(ColGDPPerCapita).Float()
	unemp, okU := get(ColUnemployment).Float()
	growth, okR := get(ColGrowth).Float()
	if okG || okU || okR {
		c.Economic = &EconomicIndicators{GDPPerCapita: gdp, Unemployment: unemp, Growth: growth}
	}
	pop, okP := get(ColPopulation).Float()
	dens, okD := get(ColDensity).Float()
	if okP || okD {
		c.Demographic = &Demographics{Population: int(pop), Density: int(dens)}
	}
	if s, ok := get(ColRiskScore).Float(); ok {
		c.RiskScore = int(s)
	}
	if lv := get(ColRiskLevel); lv.Valid {
		c.RiskLevel = RiskLevel(lv.Value)
	}
	return c
}
