package diff

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	binaryMarker      = "GIT binary patch"
	newFileMarker     = "new file mode"
	deletedFileMarker = "deleted file mode"
)

// IsBinary reports whether the record carries a binary patch.
func IsBinary(rec *FileRecord) bool {
	return strings.Contains(rec.Diff, binaryMarker)
}

// IsNewFile reports whether the diff creates the file.
func IsNewFile(rec *FileRecord) bool {
	return hasBodyLine(rec.Diff, newFileMarker)
}

// IsDeletedFile reports whether the diff removes the file.
func IsDeletedFile(rec *FileRecord) bool {
	return hasBodyLine(rec.Diff, deletedFileMarker)
}

func hasBodyLine(body, prefix string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// Classify marks binary records and records matching any ignore glob as
// ignored. Only pending records are touched. It returns the number of
// records marked.
func Classify(records map[string]*FileRecord, ignore []string) int {
	marked := 0
	for _, path := range Paths(records) {
		rec := records[path]
		if rec.Change != ChangePending {
			continue
		}
		if IsBinary(rec) {
			rec.Change = ChangeIgnored
			rec.Error = "binary file"
			marked++
			continue
		}
		if matchAny(ignore, path) {
			rec.Change = ChangeIgnored
			marked++
		}
	}
	return marked
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
