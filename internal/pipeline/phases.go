package pipeline

import (
	"context"
	"io"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/empresas-cli/internal/analysis"
	"github.com/sells-group/empresas-cli/internal/dashboard"
	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/monitoring"
	"github.com/sells-group/empresas-cli/internal/store"
)

// Artifact file names.
const (
	FileCleanCSV       = "datos_limpios.csv"
	FileCleanXLSX      = "datos_limpios.xlsx"
	FileDictionary     = "diccionario_datos.csv"
	FileCities         = "ciudades_normalizadas.csv"
	FileReportJSON     = "reporte_analisis.json"
	FileReportTXT      = "reporte_analisis.txt"
	FileEnrichedCSV    = "datos_enriquecidos.csv"
	FileEnrichedXLSX   = "datos_enriquecidos.xlsx"
	FileMonitoring     = "monitorizacion_calidad.json"
	FileIntegratedCSV  = "datos_integrados.csv"
	FileIntegratedXLSX = "datos_integrados.xlsx"
)

// clean normalizes the raw table and writes the cleaned table, the data
// dictionary and the canonical city list.
func (p *Pipeline) clean(ctx context.Context, st *state) (map[string]any, error) {
	cleaned, stats := p.cleaner.Clean(st.table)
	st.table = cleaned

	log := zap.L().With(zap.String("phase", string(PhaseClean)))
	log.Info("pipeline: table cleaned",
		zap.Int("rows_in", stats.RowsIn),
		zap.Int("rows_out", stats.RowsOut),
		zap.Int("empty_rows", stats.EmptyRows),
		zap.Int("duplicate_rows", stats.DuplicateRows),
	)
	quality := analysis.Analyze(cleaned, p.now())
	log.Info("pipeline: data quality",
		zap.Float64("null_percent", quality.Nulls.TotalPercent),
		zap.Float64("valid_dane_percent", quality.DANE.ValidPercent),
		zap.Float64("ten_digit_phone_percent", quality.Phones.TenDigitPercent),
	)

	dir := p.cfg.Paths.Output
	written, err := p.writeArtifacts(ctx, st, []artifact{
		tableArtifact(filepath.Join(dir, FileCleanCSV), cleaned),
		tableArtifact(filepath.Join(dir, FileCleanXLSX), cleaned),
		tableArtifact(filepath.Join(dir, FileDictionary),
			analysis.DictionaryTable(analysis.Dictionary(cleaned, p.tables))),
		tableArtifact(filepath.Join(dir, FileCities), analysis.CanonicalCities(p.tables)),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"rows_in":        stats.RowsIn,
		"rows_out":       stats.RowsOut,
		"empty_rows":     stats.EmptyRows,
		"duplicate_rows": stats.DuplicateRows,
		"artifacts":      written,
	}, nil
}

// enrich analyzes the cleaned table, derives the company attributes and
// writes the analysis report and the enriched table.
func (p *Pipeline) enrich(ctx context.Context, st *state) (map[string]any, error) {
	report := analysis.Analyze(st.table, p.now())
	ds := p.enricher.Enrich(st.table)
	st.ds = ds

	zap.L().Info("pipeline: dataset enriched",
		zap.String("phase", string(PhaseEnrich)),
		zap.Int("rows", ds.Len()),
		zap.Int("unique_cities", report.Cities.Unique),
	)

	enriched := ds.ToTable()
	written, err := p.writeArtifacts(ctx, st, []artifact{
		fileArtifact(filepath.Join(p.cfg.Paths.Reports, FileReportJSON), func(w io.Writer) error {
			return analysis.WriteJSON(w, report)
		}),
		fileArtifact(filepath.Join(p.cfg.Paths.Reports, FileReportTXT), func(w io.Writer) error {
			return analysis.WriteText(w, report)
		}),
		tableArtifact(filepath.Join(p.cfg.Paths.Processed, FileEnrichedCSV), enriched),
		tableArtifact(filepath.Join(p.cfg.Paths.Processed, FileEnrichedXLSX), enriched),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"rows":      ds.Len(),
		"artifacts": written,
	}, nil
}

// integrate joins the reference data, scores risk and publishes the result
// to the store, the dashboards and the monitoring report. Alerts go out
// only after every artifact is written.
func (p *Pipeline) integrate(ctx context.Context, st *state, runID string) (map[string]any, error) {
	ds := st.ds
	if ds == nil {
		if !hasColumn(st.table, model.ColID) {
			return nil, eris.Wrapf(ErrSchema, "integrate input lacks %s; run enrich first", model.ColID)
		}
		ds = model.DatasetFromTable(st.table)
	}
	ds = p.enricher.ScoreRisk(p.enricher.JoinReference(ds))
	st.ds = ds

	now := p.now()
	th := monitoring.ThresholdsFrom(p.cfg.Monitoring)
	report := monitoring.BuildReport(ds, runID, now.UTC(), th)
	summary := dashboard.Build(ds, now)
	integrated := ds.ToTable()

	arts := []artifact{
		fileArtifact(filepath.Join(p.cfg.Paths.Dashboards, dashboard.DashboardFile), func(w io.Writer) error {
			return dashboard.RenderHTML(w, summary)
		}),
		fileArtifact(filepath.Join(p.cfg.Paths.Dashboards, dashboard.MetricsFile), func(w io.Writer) error {
			return dashboard.RenderMetrics(w, summary)
		}),
		fileArtifact(filepath.Join(p.cfg.Paths.Database, FileMonitoring), func(w io.Writer) error {
			return monitoring.WriteJSON(w, report)
		}),
		tableArtifact(filepath.Join(p.cfg.Paths.Processed, FileIntegratedCSV), integrated),
		tableArtifact(filepath.Join(p.cfg.Paths.Processed, FileIntegratedXLSX), integrated),
	}
	if p.store != nil {
		arts = append(arts, artifact{name: "database", write: func(ctx context.Context, _ string) error {
			return p.persist(ctx, ds, integrated)
		}})
	}
	written, err := p.writeArtifacts(ctx, st, arts)
	if err != nil {
		return nil, err
	}

	zap.L().Info("pipeline: dataset integrated",
		zap.String("phase", string(PhaseIntegrate)),
		zap.Int("rows", ds.Len()),
		zap.Float64("avg_completeness", report.Quality.AvgCompleteness),
		zap.Float64("high_risk_percent", report.Quality.HighRiskPercent),
		zap.Int("alerts", len(report.Alerts)),
	)
	sent := p.alerter.SendAlerts(ctx, runID, report.Alerts)

	return map[string]any{
		"rows":        ds.Len(),
		"alerts":      len(report.Alerts),
		"alerts_sent": sent,
		"artifacts":   written,
	}, nil
}

// persist replaces the companies table and the summary tables.
func (p *Pipeline) persist(ctx context.Context, ds *model.Dataset, t *model.Table) error {
	n, err := p.store.ReplaceCompanies(ctx, t)
	if err != nil {
		return err
	}
	if err := p.store.WriteSummaries(ctx, store.BuildSummaries(ds)); err != nil {
		return err
	}
	zap.L().Info("pipeline: database updated", zap.Int64("companies", n))
	return nil
}
