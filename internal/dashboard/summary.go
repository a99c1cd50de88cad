// Package dashboard renders the enriched dataset as static HTML pages and
// serves the same views over HTTP.
package dashboard

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/sells-group/empresas-cli/internal/model"
)

const topCities = 10

// Count is one labelled bar or pie slice.
type Count struct {
	Label string `json:"etiqueta"`
	Count int    `json:"cantidad"`
}

// Point is one company in the completeness vs risk scatter plot.
type Point struct {
	Completeness float64 `json:"completitud"`
	RiskScore    int     `json:"puntuacion_riesgo"`
}

// Correlation is a symmetric Pearson correlation matrix. A nil cell means
// the coefficient is undefined (fewer than two paired values or a constant
// series).
type Correlation struct {
	Labels []string     `json:"etiquetas"`
	Matrix [][]*float64 `json:"matriz"`
}

// Summary holds everything the dashboard pages display.
type Summary struct {
	GeneratedAt     time.Time   `json:"fecha_generacion"`
	Total           int         `json:"total_empresas"`
	AvgCompleteness float64     `json:"completitud_promedio"`
	AvgRisk         float64     `json:"riesgo_promedio"`
	HighRisk        int         `json:"empresas_alto_riesgo"`
	Regions         []Count     `json:"regiones"`
	RiskLevels      []Count     `json:"niveles_riesgo"`
	TopCities       []Count     `json:"top_ciudades"`
	Points          []Point     `json:"puntos"`
	Correlation     Correlation `json:"correlacion"`
}

// Build computes the dashboard summary of ds.
func Build(ds *model.Dataset, now time.Time) Summary {
	s := Summary{
		GeneratedAt: now,
		Total:       ds.Len(),
		Regions:     []Count{},
		RiskLevels:  []Count{},
		TopCities:   []Count{},
		Points:      make([]Point, 0, ds.Len()),
	}

	regions := make(map[string]int)
	levels := make(map[model.RiskLevel]int)
	cities := make(map[string]int)
	var complete, risk float64
	for i, c := range ds.Companies {
		complete += c.Completeness
		risk += float64(c.RiskScore)
		regions[string(c.Region)]++
		if c.RiskLevel != "" {
			levels[c.RiskLevel]++
		}
		if c.RiskLevel == model.RiskHigh || c.RiskLevel == model.RiskCritical {
			s.HighRisk++
		}
		if city := ds.Record(i).Get(model.ColCity); city.Valid {
			cities[city.Value]++
		}
		s.Points = append(s.Points, Point{Completeness: c.Completeness, RiskScore: c.RiskScore})
	}
	if s.Total > 0 {
		s.AvgCompleteness = round(complete/float64(s.Total), 2)
		s.AvgRisk = round(risk/float64(s.Total), 2)
	}

	s.Regions = ranked(regions, 0)
	s.TopCities = ranked(cities, topCities)
	for _, lv := range model.RiskLevels {
		if n := levels[lv]; n > 0 {
			s.RiskLevels = append(s.RiskLevels, Count{Label: string(lv), Count: n})
		}
	}
	s.Correlation = correlate(ds)
	return s
}

// ranked orders counts by descending count, ties by label, keeping at most
// limit entries when limit > 0.
func ranked(m map[string]int, limit int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// correlate builds the correlation matrix of completeness, risk score and
// GDP per capita. Each pair uses only the companies where both values are
// present.
func correlate(ds *model.Dataset) Correlation {
	labels := []string{model.ColCompleteness, model.ColRiskScore, model.ColGDPPerCapita}
	series := make([][]float64, len(labels))
	present := make([][]bool, len(labels))
	for i := range labels {
		series[i] = make([]float64, ds.Len())
		present[i] = make([]bool, ds.Len())
	}
	for i, c := range ds.Companies {
		series[0][i], present[0][i] = c.Completeness, true
		series[1][i], present[1][i] = float64(c.RiskScore), true
		if c.Economic != nil {
			series[2][i], present[2][i] = c.Economic.GDPPerCapita, true
		}
	}

	m := make([][]*float64, len(labels))
	for a := range labels {
		m[a] = make([]*float64, len(labels))
		for b := range labels {
			var xs, ys []float64
			for i := range ds.Companies {
				if present[a][i] && present[b][i] {
					xs = append(xs, series[a][i])
					ys = append(ys, series[b][i])
				}
			}
			if r, ok := pearson(xs, ys); ok {
				r = round(r, 4)
				m[a][b] = &r
			}
		}
	}
	return Correlation{Labels: labels, Matrix: m}
}

// pearson returns the Pearson correlation coefficient of xs and ys.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0, false
	}
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r)), true
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

// Filter returns the companies of ds whose region is in regions and whose
// risk level is in levels. An empty list matches everything.
func Filter(ds *model.Dataset, regions, levels []string) *model.Dataset {
	if len(regions) == 0 && len(levels) == 0 {
		return ds
	}
	match := func(set []string, v string) bool {
		return len(set) == 0 || slices.Contains(set, v)
	}

	out := &model.Dataset{Table: &model.Table{Columns: ds.Table.Columns}}
	for i, c := range ds.Companies {
		if match(regions, string(c.Region)) && match(levels, string(c.RiskLevel)) {
			out.Table.Rows = append(out.Table.Rows, ds.Table.Rows[i])
			out.Companies = append(out.Companies, c)
		}
	}
	return out
}
