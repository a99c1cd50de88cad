package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/empresas-cli/internal/model"
	"github.com/sells-group/empresas-cli/internal/tabular"
)

// artifact is one independent output of a phase. File artifacts are
// written to a staging path first and published when the run succeeds.
type artifact struct {
	name  string // final path for file artifacts
	file  bool
	write func(ctx context.Context, dest string) error
}

// stagedFile is a written but unpublished file artifact.
type stagedFile struct {
	tmp, final string
}

// tableArtifact writes t as CSV or XLSX depending on the extension of path.
// Outputs always use comma-separated UTF-8, whatever the input format.
func tableArtifact(path string, t *model.Table) artifact {
	return artifact{name: path, file: true, write: func(_ context.Context, dest string) error {
		return tabular.Write(dest, t, tabular.Options{Sheet: tabular.DefaultSheet})
	}}
}

// fileArtifact writes the output of render to path.
func fileArtifact(path string, render func(io.Writer) error) artifact {
	return artifact{name: path, file: true, write: func(_ context.Context, dest string) error {
		return writeFile(dest, render)
	}}
}

// stagingPath is a hidden sibling of final that keeps its extension, so
// format selection by extension still works.
func stagingPath(final, runID string) string {
	return filepath.Join(filepath.Dir(final), "."+runID+"."+filepath.Base(final))
}

func writeFile(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "pipeline: create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "pipeline: create file")
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "pipeline: close file")
	}
	return nil
}

// writeArtifacts writes arts concurrently, at most
// pipeline.output_concurrency at a time. The dataset is final by now, so
// writers only read shared data. File artifacts land in staging paths
// recorded on st.
func (p *Pipeline) writeArtifacts(ctx context.Context, st *state, arts []artifact) ([]string, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.cfg.Pipeline.OutputConcurrency))

	for _, a := range arts {
		dest := a.name
		if a.file {
			dest = stagingPath(a.name, st.runID)
			st.staged = append(st.staged, stagedFile{tmp: dest, final: a.name})
		}
		g.Go(func() error {
			if err := a.write(gctx, dest); err != nil {
				return eris.Wrapf(err, "pipeline: write %s", a.name)
			}
			zap.L().Debug("pipeline: artifact written", zap.String("artifact", a.name))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make([]string, len(arts))
	for i, a := range arts {
		names[i] = a.name
	}
	return names, nil
}

// publishArtifacts moves every staged file onto its final path.
func publishArtifacts(st *state) error {
	for i, f := range st.staged {
		if err := os.Rename(f.tmp, f.final); err != nil {
			st.staged = st.staged[i:]
			return eris.Wrapf(err, "pipeline: publish %s", f.final)
		}
	}
	st.staged = nil
	return nil
}

// discardArtifacts removes staged files left by a failed run.
func discardArtifacts(st *state) {
	for _, f := range st.staged {
		if err := os.Remove(f.tmp); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("pipeline: failed to remove staged artifact", zap.String("path", f.tmp), zap.Error(err))
		}
	}
	st.staged = nil
}
