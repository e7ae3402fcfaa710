package diff

import (
	"sort"
	"strings"
)

const fileHeaderPrefix = "diff --git "

// headerPrefixes are structural lines that never reach a record's body.
var headerPrefixes = []string{"@@", "index", "---", "+++"}

// Parse splits a unified git diff into records keyed by post-image path.
// Lines outside a file section are dropped; malformed input never errors.
func Parse(text string) map[string]*FileRecord {
	records := make(map[string]*FileRecord)
	if text == "" {
		return records
	}

	var (
		current *FileRecord
		body    strings.Builder
	)

	flush := func() {
		if current != nil {
			current.Diff = body.String()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, fileHeaderPrefix) {
			flush()
			body.Reset()
			path, ok := newPath(line)
			if !ok {
				// Lines up to the next header belong to no file.
				current = nil
				continue
			}
			current = newRecord(path)
			records[path] = current
			continue
		}
		if current == nil || isHeader(line) {
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return records
}

// newPath extracts <new> from "diff --git a/<old> b/<new>".
func newPath(line string) (string, bool) {
	rest := strings.TrimPrefix(line, fileHeaderPrefix)
	idx := strings.LastIndex(rest, " b/")
	if idx < 0 {
		return "", false
	}
	path := strings.TrimSpace(rest[idx+len(" b/"):])
	if path == "" {
		return "", false
	}
	return path, true
}

func isHeader(line string) bool {
	for _, prefix := range headerPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// Paths returns the record keys in lexical order.
func Paths(records map[string]*FileRecord) []string {
	paths := make([]string, 0, len(records))
	for p := range records {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
