package run

import (
	"path/filepath"
	"regexp"
	"strings"
)

// versionRegex matches release versions such as 0.72.3 or 0.73.0-rc.1.
var versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.]+)?$`)

// NormalizeProject trims and cleans a project path and makes it absolute.
func NormalizeProject(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.Clean(p)
}

// ValidVersion reports whether v looks like a framework release version.
func ValidVersion(v string) bool {
	return versionRegex.MatchString(strings.TrimSpace(v))
}
