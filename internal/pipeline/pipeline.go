// Package pipeline orchestrates a run over a company spreadsheet: clean,
// enrich and integrate, each writing its own artifacts.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/empresas-cli/internal/cleaner"
	"github.com/sells-group/empresas-cli/internal/config"
	"github.com/sells-group/empresas-cli/internal/enrich"
	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/monitoring"
	"github.com/sells-group/empresas-cli/internal/reference"
	"github.com/sells-group/empresas-cli/internal/store"
	"github.com/sells-group/empresas-cli/internal/tabular"
)

// ErrSchema is returned when the input lacks a required column.
var ErrSchema = eris.New("pipeline: input schema")

// Phase names one stage of a run.
type Phase string

const (
	PhaseClean     Phase = "clean"
	PhaseEnrich    Phase = "enrich"
	PhaseIntegrate Phase = "integrate"
)

// AllPhases lists every phase in execution order.
var AllPhases = []Phase{PhaseClean, PhaseEnrich, PhaseIntegrate}

var phaseStatus = map[Phase]model.RunStatus{
	PhaseClean:     model.RunStatusCleaning,
	PhaseEnrich:    model.RunStatusEnriching,
	PhaseIntegrate: model.RunStatusIntegrating,
}

// Pipeline runs the phases over one input. The store and alerter are
// optional.
type Pipeline struct {
	cfg      *config.Config
	tables   *reference.Tables
	cleaner  *cleaner.Cleaner
	enricher *enrich.Enricher
	store    store.Store
	alerter  *monitoring.Alerter
	io       tabular.Options
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the run clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithAlerter overrides the alerter built from the monitoring config.
func WithAlerter(a *monitoring.Alerter) Option {
	return func(p *Pipeline) { p.alerter = a }
}

// New creates a Pipeline. The reference tables are validated first so an
// inconsistent correction table fails before any input is read.
func New(cfg *config.Config, tables *reference.Tables, st store.Store, opts ...Option) (*Pipeline, error) {
	if err := tables.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: reference tables")
	}

	p := &Pipeline{
		cfg:     cfg,
		tables:  tables,
		cleaner: cleaner.New(tables),
		store:   st,
		alerter: monitoring.NewAlerter(cfg.Monitoring),
		now:     time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	p.enricher = enrich.New(tables,
		enrich.WithClock(p.now),
		enrich.WithRelevantFields(cfg.Pipeline.RelevantFields),
	)
	p.io = tabular.Options{
		CSV: tabular.CSVOptions{
			Delimiter: cfg.DelimiterRune(),
			Encoding:  cfg.Input.Encoding,
		},
		XLSX: tabular.XLSXOptions{
			SheetIndex: cfg.Input.SheetIndex,
			SheetName:  cfg.Input.Sheet,
		},
		Sheet: tabular.DefaultSheet,
		Downloader: tabular.NewDownloader(tabular.DownloaderOptions{
			UserAgent:  cfg.Download.UserAgent,
			Timeout:    time.Duration(cfg.Download.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Download.MaxRetries,
			Limiter:    newLimiter(cfg.Download.RPS),
		}),
	}
	return p, nil
}

// Load reads src and checks that it carries the required columns.
func (p *Pipeline) Load(ctx context.Context, src string) (*model.Table, error) {
	t, err := tabular.Read(ctx, src, p.io)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load %s", src)
	}

	var missing []string
	for _, col := range p.cfg.Pipeline.RequiredColumns {
		if !hasColumn(t, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Wrapf(ErrSchema, "missing required columns %s", strings.Join(missing, ", "))
	}
	return t, nil
}

// hasColumn matches header names after trimming, as the cleaner does.
func hasColumn(t *model.Table, name string) bool {
	for _, c := range t.Columns {
		if strings.TrimSpace(c) == name {
			return true
		}
	}
	return false
}

// Execute loads src and runs phases in order, recording the run and every
// phase outcome. The first failing phase stops the run.
func (p *Pipeline) Execute(ctx context.Context, src string, phases ...Phase) (*model.Run, error) {
	if len(phases) == 0 {
		phases = AllPhases
	}
	run := &model.Run{
		ID:        uuid.NewString(),
		Source:    src,
		Status:    model.RunStatusQueued,
		StartedAt: p.now().UTC(),
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("source", src))
	log.Info("pipeline: starting run", zap.Int("phases", len(phases)))
	p.saveRun(ctx, run, log)

	t, err := p.Load(ctx, src)
	if err != nil {
		return p.fail(ctx, run, log, err)
	}
	run.RowsIn = t.Len()
	st := &state{table: t, runID: run.ID}

	for _, ph := range phases {
		run.Status = phaseStatus[ph]
		p.saveRun(ctx, run, log)

		if err := p.trackPhase(run, log, ph, func() (map[string]any, error) {
			return p.runPhase(ctx, ph, st, run.ID)
		}); err != nil {
			discardArtifacts(st)
			return p.fail(ctx, run, log, err)
		}
	}
	if err := publishArtifacts(st); err != nil {
		discardArtifacts(st)
		return p.fail(ctx, run, log, err)
	}

	run.RowsOut = st.rows()
	run.Status = model.RunStatusComplete
	run.CompletedAt = p.now().UTC()
	p.saveRun(ctx, run, log)
	log.Info("pipeline: run complete",
		zap.Int("rows_in", run.RowsIn),
		zap.Int("rows_out", run.RowsOut),
	)
	return run, nil
}

// Run executes every phase.
func (p *Pipeline) Run(ctx context.Context, src string) (*model.Run, error) {
	return p.Execute(ctx, src, AllPhases...)
}

func (p *Pipeline) runPhase(ctx context.Context, ph Phase, st *state, runID string) (map[string]any, error) {
	switch ph {
	case PhaseClean:
		return p.clean(ctx, st)
	case PhaseEnrich:
		return p.enrich(ctx, st)
	case PhaseIntegrate:
		return p.integrate(ctx, st, runID)
	}
	return nil, eris.Errorf("pipeline: unknown phase %q", ph)
}

// trackPhase times fn and appends its outcome to run.Phases.
func (p *Pipeline) trackPhase(run *model.Run, log *zap.Logger, ph Phase, fn func() (map[string]any, error)) error {
	start := time.Now()
	meta, err := fn()
	duration := time.Since(start).Milliseconds()

	pr := model.PhaseResult{Name: string(ph), Duration: duration, Metadata: meta}
	if err != nil {
		pr.Status = model.PhaseStatusFailed
		pr.Error = err.Error()
		log.Error("pipeline: phase failed",
			zap.String("phase", string(ph)),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
	} else {
		pr.Status = model.PhaseStatusComplete
		log.Info("pipeline: phase complete",
			zap.String("phase", string(ph)),
			zap.Int64("duration_ms", duration),
		)
	}
	run.Phases = append(run.Phases, pr)
	return err
}

func (p *Pipeline) fail(ctx context.Context, run *model.Run, log *zap.Logger, err error) (*model.Run, error) {
	run.Status = model.RunStatusFailed
	run.Error = err.Error()
	run.CompletedAt = p.now().UTC()
	p.saveRun(ctx, run, log)
	return run, err
}

// saveRun persists run metadata. Failures are logged, not fatal.
func (p *Pipeline) saveRun(ctx context.Context, run *model.Run, log *zap.Logger) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveRun(ctx, run); err != nil {
		log.Warn("pipeline: failed to save run", zap.String("status", string(run.Status)), zap.Error(err))
	}
}

// state carries the working data between phases.
type state struct {
	table  *model.Table
	ds     *model.Dataset
	runID  string
	staged []stagedFile
}

func (s *state) rows() int {
	if s.ds != nil {
		return s.ds.Len()
	}
	return s.table.Len()
}

// newLimiter returns a download limiter; a non-positive rate disables
// throttling.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}
