package workspace

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type listItem struct {
	rel   string
	depth int
}

// List returns the files and directories under start (relative to root),
// at most maxDepth levels deep. Directory entries end with "/". Entries
// whose name or relative path matches an ignore glob are skipped along with
// everything below them. The result is sorted.
func List(root, start string, maxDepth int, ignore []string) ([]string, error) {
	start = strings.Trim(filepath.ToSlash(strings.TrimSpace(start)), "/")
	if start == "." {
		start = ""
	}
	if containsTraversal(start) {
		return nil, fmt.Errorf("path must not contain directory traversal (..)")
	}

	var out []string
	stack := []listItem{{rel: start, depth: 0}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(item.rel)))
		if err != nil {
			if item.rel == start {
				return nil, fmt.Errorf("list %s: %w", displayDir(start), err)
			}
			continue
		}

		for _, e := range entries {
			rel := e.Name()
			if item.rel != "" {
				rel = path.Join(item.rel, e.Name())
			}
			if ignored(ignore, e.Name(), rel) {
				continue
			}
			if e.IsDir() {
				out = append(out, rel+"/")
				if maxDepth <= 0 || item.depth+1 < maxDepth {
					stack = append(stack, listItem{rel: rel, depth: item.depth + 1})
				}
				continue
			}
			out = append(out, rel)
		}
	}

	sort.Strings(out)
	return out, nil
}

func ignored(patterns []string, name, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func displayDir(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
