// Package ops implements the run history operations shared by the CLI and
// the MCP server.
package ops

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/run"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Selector addresses one run: either by ID or as the latest run of a project.
type Selector struct {
	ID      string
	Project string
}

// resolve validates the selector. Exactly one of ID and Project must be set.
func (s Selector) resolve() (Selector, error) {
	id := strings.TrimSpace(s.ID)
	project := strings.TrimSpace(s.Project)

	if id != "" && project != "" {
		return Selector{}, errors.NewInvalidRequest("specify either id or project, not both")
	}
	if id == "" && project == "" {
		return Selector{}, errors.NewInvalidRequest("must specify either id or project")
	}
	if id != "" {
		return Selector{ID: id}, nil
	}
	return Selector{Project: run.NormalizeProject(project)}, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// generateULID returns a new time-ordered ID. Monotonic entropy keeps IDs
// created within the same millisecond sortable.
func generateULID(t time.Time) (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return id.String(), nil
}
