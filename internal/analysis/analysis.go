// Package analysis computes the exploratory statistics and data-quality
// metrics of a company table and renders them as reports.
package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/empresas-cli/internal/cleaner"
	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/normalize"
)

// TopN is the length of the ranked lists in a Report.
const TopN = 10

// Report is the exploratory analysis of one table. JSON keys keep the
// Spanish names of the published report.
type Report struct {
	GeneratedAt time.Time    `json:"fecha_generacion"`
	Basic       BasicStats   `json:"estadisticas_basicas"`
	Nulls       NullStats    `json:"valores_nulos"`
	Cities      CityStats    `json:"analisis_ciudades"`
	Managers    ManagerStats `json:"analisis_gerentes"`
	DANE        DANEStats    `json:"analisis_dane"`
	Phones      PhoneStats   `json:"analisis_telefonos"`
}

// BasicStats are table-level counts.
type BasicStats struct {
	Records       int            `json:"total_registros"`
	Columns       int            `json:"total_columnas"`
	ColumnsByType map[string]int `json:"columnas_por_tipo"`
}

// NullStats counts absent cells.
type NullStats struct {
	ByColumn        map[string]int     `json:"por_columna"`
	PercentByColumn map[string]float64 `json:"porcentaje_por_columna"`
	Total           int                `json:"total_nulos"`
	TotalPercent    float64            `json:"porcentaje_total_nulos"`
}

// Count is one entry of a ranked list.
type Count struct {
	Value string  `json:"valor"`
	Count int     `json:"cantidad"`
	Share float64 `json:"proporcion"`
}

// CityStats describes the city column.
type CityStats struct {
	Unique int     `json:"total_ciudades_unicas"`
	Top    []Count `json:"top_10_ciudades"`
}

// ManagerStats describes the general manager columns.
type ManagerStats struct {
	Unique       int     `json:"total_gerentes_unicos"`
	MultiCompany int     `json:"total_gerentes_multiple_empresas"`
	TopMulti     []Count `json:"gerentes_con_mas_empresas"`
}

// DANEStats describes the DANE code column.
type DANEStats struct {
	Unique       int     `json:"codigos_dane_unicos"`
	Invalid      int     `json:"codigos_dane_invalidos"`
	ValidPercent float64 `json:"porcentaje_dane_validos"`
}

// PhoneStats describes the phone columns.
type PhoneStats struct {
	Phone1Present   int     `json:"telefonos_1_validos"`
	Phone2Present   int     `json:"telefonos_2_validos"`
	Phone1Percent   float64 `json:"porcentaje_telefonos_1"`
	Phone2Percent   float64 `json:"porcentaje_telefonos_2"`
	TenDigitPercent float64 `json:"porcentaje_telefonos_10_digitos"`
}

// Analyze computes the report for t. Columns missing from t count as
// entirely absent.
func Analyze(t *model.Table, now time.Time) Report {
	n := t.Len()
	r := Report{
		GeneratedAt: now,
		Basic: BasicStats{
			Records:       n,
			Columns:       len(t.Columns),
			ColumnsByType: make(map[string]int),
		},
		Nulls: NullStats{
			ByColumn:        make(map[string]int, len(t.Columns)),
			PercentByColumn: make(map[string]float64, len(t.Columns)),
		},
	}

	for i, col := range t.Columns {
		r.Basic.ColumnsByType[string(cleaner.InferType(t, i))]++
		nulls := 0
		for _, row := range t.Rows {
			if !row[i].Valid {
				nulls++
			}
		}
		r.Nulls.ByColumn[col] = nulls
		r.Nulls.PercentByColumn[col] = percent(nulls, n)
		r.Nulls.Total += nulls
	}
	r.Nulls.TotalPercent = percent(r.Nulls.Total, n*len(t.Columns))

	cities := column(t, model.ColCity)
	cityCounts := valueCounts(cities)
	r.Cities = CityStats{Unique: len(cityCounts), Top: top(cityCounts, n, TopN)}

	r.Managers = managerStats(t)

	codes := column(t, model.ColDANECode)
	validCodes := 0
	for _, c := range codes {
		if normalize.IsValidDANECode(c) {
			validCodes++
		}
	}
	r.DANE = DANEStats{
		Unique:       len(valueCounts(codes)),
		Invalid:      n - present(codes),
		ValidPercent: percent(validCodes, n),
	}

	phone1 := column(t, model.ColPhone1)
	phone2 := column(t, model.ColPhone2)
	tenDigit := 0
	for _, c := range phone1 {
		if normalize.IsValidPhone(c) {
			tenDigit++
		}
	}
	r.Phones = PhoneStats{
		Phone1Present:   present(phone1),
		Phone2Present:   present(phone2),
		Phone1Percent:   percent(present(phone1), n),
		Phone2Percent:   percent(present(phone2), n),
		TenDigitPercent: percent(tenDigit, n),
	}
	return r
}

func managerStats(t *model.Table) ManagerStats {
	names := column(t, model.ColGeneralManagerNames)
	surnames := column(t, model.ColGeneralManagerSurnames)

	distinct := make(map[string]bool)
	counts := make(map[string]int)
	for i := range names {
		distinct[model.Row{names[i], surnames[i]}.Key()] = true
		// Managers are only grouped when both parts of the name are known.
		if names[i].Valid && surnames[i].Valid {
			counts[names[i].Value+" "+surnames[i].Value]++
		}
	}

	multi := make(map[string]int)
	for k, v := range counts {
		if v > 1 {
			multi[k] = v
		}
	}
	return ManagerStats{
		Unique:       len(distinct),
		MultiCompany: len(multi),
		TopMulti:     top(multi, t.Len(), TopN),
	}
}

// column returns the named column, or an all-absent column if it is missing.
func column(t *model.Table, name string) []model.Cell {
	if c := t.Column(name); c != nil {
		return c
	}
	return make([]model.Cell, t.Len())
}

func present(cells []model.Cell) int {
	n := 0
	for _, c := range cells {
		if c.Valid {
			n++
		}
	}
	return n
}

func valueCounts(cells []model.Cell) map[string]int {
	counts := make(map[string]int)
	for _, c := range cells {
		if c.Valid {
			counts[c.Value]++
		}
	}
	return counts
}

// top ranks counts by frequency, breaking ties by value.
func top(counts map[string]int, total, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for v, c := range counts {
		out = append(out, Count{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Share = ratio(out[i].Count, total)
	}
	return out
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(part)/float64(total)*100, 2)
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(part)/float64(total), 4)
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
