package monitoring

import (
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/empresas-cli/internal/model"
)

// QualityMetrics is the data-quality section of a Report.
type QualityMetrics struct {
	AvgCompleteness       float64 `json:"completitud_promedio"`
	HighRiskPercent       float64 `json:"porcentaje_alto_riesgo"`
	WithoutPhone          int     `json:"empresas_sin_telefono"`
	WithoutFinanceManager int     `json:"empresas_sin_gerente_financiero"`
}

// Report is the monitoring snapshot of one enriched dataset.
type Report struct {
	GeneratedAt      time.Time               `json:"fecha_generacion"`
	RunID            string                  `json:"id_ejecucion,omitempty"`
	TotalRecords     int                     `json:"total_registros"`
	Quality          QualityMetrics          `json:"metricas_calidad"`
	RiskDistribution map[model.RiskLevel]int `json:"distribucion_riesgo"`
	Alerts           []Alert                 `json:"alertas"`
}

// BuildReport collects the quality metrics and alerts of ds.
func BuildReport(ds *model.Dataset, runID string, now time.Time, th Thresholds) Report {
	n := ds.Len()
	r := Report{
		GeneratedAt:      now,
		RunID:            runID,
		TotalRecords:     n,
		RiskDistribution: make(map[model.RiskLevel]int),
		Alerts:           Evaluate(ds, th),
	}
	if r.Alerts == nil {
		r.Alerts = []Alert{}
	}

	var total float64
	for _, c := range ds.Companies {
		total += c.Completeness
		if c.RiskLevel != "" {
			r.RiskDistribution[c.RiskLevel]++
		}
	}
	if n > 0 {
		r.Quality.AvgCompleteness = round2(total / float64(n))
		r.Quality.HighRiskPercent = round2(float64(highRiskCount(ds)) / float64(n) * 100)
	}
	r.Quality.WithoutPhone = absentCount(ds, model.ColPhone1)
	r.Quality.WithoutFinanceManager = absentCount(ds, model.ColFinanceManagerNames)
	return r
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "monitoring: encode report")
	}
	return nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
