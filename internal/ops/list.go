package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/rnupgrade/internal/db"
	"github.com/hpungsan/rnupgrade/internal/run"
)

// ListInput contains parameters for the ListRuns operation.
type ListInput struct {
	Project        string // optional, empty lists every project
	Limit          int    // default: 20, max: 100
	Offset         int    // default: 0
	IncludeDeleted bool
}

// ListOutput contains the result of the ListRuns operation.
type ListOutput struct {
	Items      []run.Summary `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// ListRuns retrieves run summaries, newest first, with pagination.
func ListRuns(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	project := ""
	if strings.TrimSpace(input.Project) != "" {
		project = run.NormalizeProject(input.Project)
	}

	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	offset := max(input.Offset, 0)

	summaries, total, err := db.ListRuns(ctx, database, project, limit, offset, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if summaries == nil {
		summaries = []run.Summary{}
	}

	return &ListOutput{
		Items: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(summaries) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
