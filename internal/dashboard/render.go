package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/empresas-cli/internal/model"
)

// File names of the rendered pages.
const (
	DashboardFile = "dashboard_empresas.html"
	MetricsFile   = "metricas_clave.html"
)

//go:embed templates/*.html
var templateFS embed.FS

// Scatter plot geometry, in SVG user units.
const (
	plotLeft   = 40.0
	plotTop    = 20.0
	plotWidth  = 520.0
	plotHeight = 240.0
	maxRisk    = 10.0
)

var riskColors = map[string]string{
	string(model.RiskLow):      "#2e7d32",
	string(model.RiskMedium):   "#f9a825",
	string(model.RiskHigh):     "#ef6c00",
	string(model.RiskCritical): "#c62828",
}

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"pct": func(n, total int) string {
		if total == 0 {
			return "0.0"
		}
		return fmt.Sprintf("%.1f", float64(n)/float64(total)*100)
	},
	"width": func(n int, counts []Count) string {
		top := 0
		for _, c := range counts {
			top = max(top, c.Count)
		}
		if top == 0 {
			return "0"
		}
		return fmt.Sprintf("%.1f", float64(n)/float64(top)*100)
	},
	"cx": func(p Point) string {
		x := plotLeft + math.Max(0, math.Min(100, p.Completeness))/100*plotWidth
		return fmt.Sprintf("%.1f", x)
	},
	"cy": func(p Point) string {
		y := plotTop + plotHeight - math.Max(0, math.Min(maxRisk, float64(p.RiskScore)))/maxRisk*plotHeight
		return fmt.Sprintf("%.1f", y)
	},
	"riskColor": func(label string) template.CSS {
		if c, ok := riskColors[label]; ok {
			return template.CSS(c)
		}
		return "#607d8b"
	},
	"corr": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%.2f", *v)
	},
	"heat": heatColor,
	"date": func(s Summary) string { return s.GeneratedAt.Format("2006-01-02 15:04:05") },
	"f1":   func(f float64) string { return fmt.Sprintf("%.1f", f) },
}).ParseFS(templateFS, "templates/*.html"))

// heatColor maps a coefficient to a blue (negative) or red (positive) shade.
func heatColor(v *float64) template.CSS {
	if v == nil {
		return "#eeeeee"
	}
	shade := 255 - int(math.Abs(*v)*155)
	if *v < 0 {
		return template.CSS(fmt.Sprintf("#%02x%02xff", shade, shade))
	}
	return template.CSS(fmt.Sprintf("#ff%02x%02x", shade, shade))
}

// RenderHTML writes the analytic dashboard page: region distribution, risk
// levels, completeness vs risk scatter, top cities and the correlation
// heat map.
func RenderHTML(w io.Writer, s Summary) error {
	if err := pages.ExecuteTemplate(w, "dashboard.html", s); err != nil {
		return eris.Wrap(err, "dashboard: render dashboard")
	}
	return nil
}

// RenderMetrics writes the key-metrics page.
func RenderMetrics(w io.Writer, s Summary) error {
	if err := pages.ExecuteTemplate(w, "metrics.html", s); err != nil {
		return eris.Wrap(err, "dashboard: render metrics")
	}
	return nil
}
