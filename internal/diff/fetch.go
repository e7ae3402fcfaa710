package diff

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/rnupgrade/internal/errors"
)

// Fetcher downloads upgrade diffs and keeps a local copy of each one.
type Fetcher struct {
	BaseURL  string
	CacheDir string // empty disables the on-disk cache
	Client   *http.Client
}

// NewFetcher creates a Fetcher for baseURL caching into cacheDir.
func NewFetcher(baseURL, cacheDir string) *Fetcher {
	return &Fetcher{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		CacheDir: cacheDir,
		Client:   http.DefaultClient,
	}
}

// URL returns the source URL for the from..to diff.
func (f *Fetcher) URL(from, to string) string {
	return fmt.Sprintf("%s/%s..%s.diff", strings.TrimSuffix(f.BaseURL, "/"), from, to)
}

// Fetch returns the raw diff between two versions, from cache when present.
// Identical versions and missing diffs are DIFF_UNAVAILABLE errors.
func (f *Fetcher) Fetch(ctx context.Context, from, to string) (string, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return "", errors.NewInvalidRequest("both from and to versions are required")
	}
	if from == to {
		return "", errors.NewAlreadyOnVersion(from)
	}

	cachePath := f.cachePath(from, to)
	if cachePath != "" {
		if data, err := os.ReadFile(cachePath); err == nil && len(data) > 0 {
			return string(data), nil
		}
	}

	url := f.URL(from, to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.NewInternal(err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch diff: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewDiffUnavailable(from, to, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read diff: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.NewDiffUnavailable(from, to, url)
	}

	if cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cachePath), 0700); err != nil {
			return "", fmt.Errorf("create diff cache dir: %w", err)
		}
		if err := os.WriteFile(cachePath, data, 0600); err != nil {
			return "", fmt.Errorf("write diff cache: %w", err)
		}
	}

	return string(data), nil
}

func (f *Fetcher) cachePath(from, to string) string {
	if f.CacheDir == "" {
		return ""
	}
	return filepath.Join(f.CacheDir, fmt.Sprintf("%s..%s.diff", from, to))
}
