package diff

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/rnupgrade/internal/errors"
)

func TestFetch_SameVersion(t *testing.T) {
	f := NewFetcher("http://unused.invalid", "")

	_, err := f.Fetch(context.Background(), "0.72.3", "0.72.3")
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrDiffUnavailable))
	require.Contains(t, err.Error(), "already on version 0.72.3")
}

func TestFetch_DownloadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/diffs/0.71.0..0.72.3.diff" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(twoFileDiff))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	f := NewFetcher(srv.URL+"/diffs/", cacheDir)

	text, err := f.Fetch(context.Background(), "0.71.0", "0.72.3")
	require.NoError(t, err)
	require.Equal(t, twoFileDiff, text)

	cached, err := os.ReadFile(filepath.Join(cacheDir, "0.71.0..0.72.3.diff"))
	require.NoError(t, err)
	require.Equal(t, twoFileDiff, string(cached))

	text, err = f.Fetch(context.Background(), "0.71.0", "0.72.3")
	require.NoError(t, err)
	require.Equal(t, twoFileDiff, text)
	require.Equal(t, int32(1), hits.Load(), "second fetch should be served from cache")
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "")
	_, err := f.Fetch(context.Background(), "0.10.0", "0.72.3")
	require.True(t, errors.Is(err, errors.ErrDiffUnavailable))

	uErr, ok := errors.As(err)
	require.True(t, ok)
	require.Equal(t, srv.URL+"/0.10.0..0.72.3.diff", uErr.Details["url"])
}

func TestFetch_MissingVersion(t *testing.T) {
	f := NewFetcher("http://unused.invalid", "")
	_, err := f.Fetch(context.Background(), "", "0.72.3")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
