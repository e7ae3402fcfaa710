package relevance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/rnupgrade/internal/session"
)

func entry(path string, emb ...float64) *session.FileEntry {
	return &session.FileEntry{Path: path, Embeddings: emb}
}

func paths(ranked []Ranked) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.File.Path
	}
	return out
}

func TestRank_OrdersAndFilters(t *testing.T) {
	files := map[string]*session.FileEntry{
		"close.js":    entry("close.js", 1, 0.1),
		"closer.js":   entry("closer.js", 1, 0),
		"far.js":      entry("far.js", 0, 1),
		"no-embed.js": entry("no-embed.js"),
	}

	ranked := Rank(files, []float64{1, 0}, "", DefaultThreshold)

	require.Equal(t, []string{"closer.js", "close.js"}, paths(ranked))
	require.InDelta(t, 1.0, ranked[0].Similarity, 1e-9)
}

func TestRank_CurrentFileFirst(t *testing.T) {
	files := map[string]*session.FileEntry{
		"App.tsx":      entry("App.tsx", 0, 1),
		"index.js":     entry("index.js", 1, 0),
		"package.json": entry("package.json"),
	}

	for _, current := range []string{"App.tsx", "package.json"} {
		ranked := Rank(files, []float64{1, 0}, current, DefaultThreshold)
		require.NotEmpty(t, ranked)
		require.Equal(t, current, ranked[0].File.Path)
		require.Equal(t, 1.0, ranked[0].Similarity)
	}
}

func TestRank_TiesKeepPathOrder(t *testing.T) {
	files := map[string]*session.FileEntry{
		"b.js": entry("b.js", 2, 0),
		"a.js": entry("a.js", 1, 0),
		"c.js": entry("c.js", 3, 0),
	}

	ranked := Rank(files, []float64{1, 0}, "", 0.5)
	require.Equal(t, []string{"a.js", "b.js", "c.js"}, paths(ranked))
}

func TestRank_EmptyInputs(t *testing.T) {
	files := map[string]*session.FileEntry{"a.js": entry("a.js", 1)}

	require.Empty(t, Rank(nil, []float64{1}, "", DefaultThreshold))
	require.Empty(t, Rank(files, nil, "a.js", DefaultThreshold))
}

func TestRank_ZeroTaskVector(t *testing.T) {
	files := map[string]*session.FileEntry{
		"a.js": entry("a.js", 1, 0),
		"b.js": entry("b.js", 0, 1),
	}

	ranked := Rank(files, []float64{0, 0}, "b.js", DefaultThreshold)
	require.Equal(t, []string{"b.js"}, paths(ranked), "non-current files score 0 against a zero vector")
}

func TestSimilarities(t *testing.T) {
	ranked := []Ranked{{File: entry("a.js"), Similarity: 0.9}}
	require.Equal(t, map[string]float64{"a.js": 0.9}, Similarities(ranked))
}
