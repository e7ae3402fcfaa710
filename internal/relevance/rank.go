// Package relevance orders session files by how close they are to the
// current task.
package relevance

import (
	"sort"

	"github.com/hpungsan/rnupgrade/internal/session"
	"github.com/hpungsan/rnupgrade/internal/vector"
)

// DefaultThreshold is the similarity a file must exceed to be re-presented.
const DefaultThreshold = 0.7

// Ranked pairs a file with its similarity to the task.
type Ranked struct {
	File       *session.FileEntry
	Similarity float64
}

// Rank scores every file against taskEmbeddings and returns those above
// threshold, most similar first. The file named currentFile always scores 1.
// Files without embeddings score 0. Paths are visited in lexical order so
// that equal scores keep a stable order. An empty file map or absent task
// embeddings yield an empty result.
func Rank(files map[string]*session.FileEntry, taskEmbeddings []float64, currentFile string, threshold float64) []Ranked {
	if len(files) == 0 || len(taskEmbeddings) == 0 {
		return []Ranked{}
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	ranked := make([]Ranked, 0, len(paths))
	for _, p := range paths {
		f := files[p]
		if f == nil {
			continue
		}
		s := score(f, p, taskEmbeddings, currentFile)
		if s <= threshold {
			continue
		}
		ranked = append(ranked, Ranked{File: f, Similarity: s})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	return ranked
}

func score(f *session.FileEntry, path string, task []float64, currentFile string) float64 {
	if currentFile != "" && path == currentFile {
		return 1
	}
	if len(f.Embeddings) == 0 {
		return 0
	}
	s := vector.CosineSimilarity(f.Embeddings, task)
	if !vector.Finite(s) {
		return 0
	}
	return s
}

// Similarities indexes a ranking by path.
func Similarities(ranked []Ranked) map[string]float64 {
	out := make(map[string]float64, len(ranked))
	for _, r := range ranked {
		out[r.File.Path] = r.Similarity
	}
	return out
}
