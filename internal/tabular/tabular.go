// Package tabular reads and writes company tables as CSV and XLSX files.
// Inputs may also be ZIP archives holding one spreadsheet or http(s) URLs.
package tabular

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/empresas-cli/internal/model"
)

// Supported file extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
	ExtZIP  = ".zip"
)

// Options configures Read and Write.
type Options struct {
	CSV        CSVOptions
	XLSX       XLSXOptions
	Sheet      string // sheet name for written workbooks
	Downloader *Downloader
}

// Read loads the table at src. Remote sources are downloaded and ZIP
// archives extracted into a temporary directory first; the reader is chosen
// by file extension.
func Read(ctx context.Context, src string, opts Options) (*model.Table, error) {
	if IsRemote(src) || strings.EqualFold(filepath.Ext(src), ExtZIP) {
		tmp, err := os.MkdirTemp("", "empresas-input-*")
		if err != nil {
			return nil, eris.Wrap(err, "tabular: create temp dir")
		}
		defer os.RemoveAll(tmp) //nolint:errcheck

		src, err = localize(ctx, src, tmp, opts)
		if err != nil {
			return nil, err
		}
	}
	return readLocal(ctx, src, opts)
}

func localize(ctx context.Context, src, dir string, opts Options) (string, error) {
	if IsRemote(src) {
		d := opts.Downloader
		if d == nil {
			d = NewDownloader(DownloaderOptions{})
		}
		var err error
		if src, err = d.DownloadToDir(ctx, src, dir); err != nil {
			return "", eris.Wrap(err, "tabular: fetch remote input")
		}
	}
	if strings.EqualFold(filepath.Ext(src), ExtZIP) {
		return ExtractSingleTable(src, dir)
	}
	return src, nil
}

func readLocal(ctx context.Context, path string, opts Options) (*model.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "tabular: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(ctx, f, opts.CSV)
	case ExtXLSX:
		return ReadXLSX(path, opts.XLSX)
	}
	return nil, eris.Errorf("tabular: unsupported input format %q", filepath.Ext(path))
}

// Write saves t to path, choosing the format by extension. Parent
// directories are created as needed.
func Write(path string, t *model.Table, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "tabular: create output dir")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtCSV:
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "tabular: create csv")
		}
		if err := WriteCSV(f, t, opts.CSV); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrap(err, "tabular: close csv")
		}
		return nil
	case ExtXLSX:
		return WriteXLSX(path, t, opts.Sheet)
	}
	return eris.Errorf("tabular: unsupported output format %q", filepath.Ext(path))
}
