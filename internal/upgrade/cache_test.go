package upgrade

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/rnupgrade/internal/llm"
	"github.com/hpungsan/rnupgrade/internal/session"
)

func TestCache_PutGetEvict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c, err := LoadCache(path)
	require.NoError(t, err)
	require.Equal(t, 0, c.Len())

	resp := &llm.ChatResponse{FunctionCall: &session.FunctionCall{Name: "patch", Arguments: `{"path":"a","contents":"b"}`}}
	require.NoError(t, c.Put("a", resp))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc["request"], "a")

	reloaded, err := LoadCache(path)
	require.NoError(t, err)
	got, ok := reloaded.Get("a")
	require.True(t, ok)
	require.Equal(t, "patch", got.FunctionCall.Name)

	removed, err := reloaded.Evict("a")
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = reloaded.Evict("a")
	require.NoError(t, err)
	require.False(t, removed)

	again, err := LoadCache(path)
	require.NoError(t, err)
	_, ok = again.Get("a")
	require.False(t, ok)
}

func TestCache_NilIsDisabled(t *testing.T) {
	var c *Cache
	_, ok := c.Get("a")
	require.False(t, ok)
	require.NoError(t, c.Put("a", &llm.ChatResponse{}))
	removed, err := c.Evict("a")
	require.NoError(t, err)
	require.False(t, removed)
	require.Equal(t, 0, c.Len())
}

func TestLoadCache_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err := LoadCache(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("  "), 0600))
	c, err := LoadCache(path)
	require.NoError(t, err)
	require.Equal(t, 0, c.Len())
}
