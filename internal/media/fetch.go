// ABOUTME: Remote media fetcher for http(s) video and audio URLs
// ABOUTME: Downloads into a cache directory keyed by the URL hash
package media

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Fetcher resolves media arguments to local files
type Fetcher struct {
	cacheDir string
	client   *http.Client
	logger   zerolog.Logger
}

// NewFetcher creates a fetcher caching under cacheDir, defaulting to
// $TMPDIR/mindscribe-media
func NewFetcher(cacheDir string, logger zerolog.Logger) (*Fetcher, error) {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "mindscribe-media")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Fetcher{
		cacheDir: cacheDir,
		client:   &http.Client{},
		logger:   logger,
	}, nil
}

// IsRemote reports whether arg is an http or https URL
func IsRemote(arg string) bool {
	u, err := url.Parse(arg)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Resolve returns arg unchanged for local paths and downloads URLs
func (f *Fetcher) Resolve(ctx context.Context, arg string) (string, error) {
	if !IsRemote(arg) {
		return arg, nil
	}
	return f.Download(ctx, arg)
}

// Download fetches rawURL into the cache and returns the local path. A
// cached copy is reused without contacting the server.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, error) {
	cachePath := f.CachePath(rawURL)
	if _, err := os.Stat(cachePath); err == nil {
		f.logger.Debug().Str("path", cachePath).Msg("media cache hit")
		return cachePath, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid media URL: %w", err)
	}

	f.logger.Info().Str("url", rawURL).Msg("downloading media")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media download failed: HTTP %d", resp.StatusCode)
	}

	// Write beside the cache entry and rename so an interrupted download
	// never looks cached
	tmp, err := os.CreateTemp(f.cacheDir, "partial-*")
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save media: %w", err)
	}
	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save media: %w", err)
	}

	f.logger.Info().Str("path", cachePath).Int64("bytes", n).Msg("media saved")
	return cachePath, nil
}

// CachePath returns where rawURL is stored. The URL's extension is kept so
// the decoder can be chosen by name.
func (f *Fetcher) CachePath(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, fmt.Sprintf("%x%s", hash[:8], extension(rawURL)))
}

// Cleanup removes the cache directory
func (f *Fetcher) Cleanup() error {
	return os.RemoveAll(f.cacheDir)
}

func extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}
