package tabular

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DownloaderOptions configures the HTTP downloader used for remote inputs.
type DownloaderOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Limiter    *rate.Limiter
	// BaseBackoff is the first retry delay; it doubles per attempt.
	BaseBackoff time.Duration
}

// Downloader fetches remote spreadsheets with retry and rate limiting.
type Downloader struct {
	client *http.Client
	opts   DownloaderOptions
}

// NewDownloader creates a Downloader with the given options.
func NewDownloader(opts DownloaderOptions) *Downloader {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "empresas-cli/1.0"
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(2, 1)
	}
	if opts.BaseBackoff == 0 {
		opts.BaseBackoff = time.Second
	}
	return &Downloader{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// IsRemote reports whether src is an http(s) URL.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DownloadToDir fetches rawURL into dir, keeping the URL's base name so the
// file extension still selects the reader. Returns the written path.
func (d *Downloader) DownloadToDir(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "download: parse url")
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "input"
	}
	dest := filepath.Join(dir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "download: create request")
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)

	resp, err := d.doWithRetry(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	file, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrap(err, "download: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "download: write file")
	}
	zap.L().Info("downloaded input", zap.String("url", rawURL), zap.Int64("bytes", n))
	return dest, nil
}

func (d *Downloader) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := range d.opts.MaxRetries {
		if err := d.opts.Limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := d.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			zap.L().Warn("http request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			d.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("server error, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			d.backoff(ctx, attempt)
			continue
		}

		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

func (d *Downloader) backoff(ctx context.Context, attempt int) {
	maxBackoff := 30 * time.Second
	wait := time.Duration(float64(d.opts.BaseBackoff) * math.Pow(2, float64(attempt)))
	if wait > maxBackoff {
		wait = maxBackoff
	}
	if half := int64(wait) / 2; half > 0 {
		wait += time.Duration(rand.Int64N(half))
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
