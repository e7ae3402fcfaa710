package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/rnupgrade/internal/db"
	"github.com/hpungsan/rnupgrade/internal/run"
)

// FetchInput contains parameters for the FetchRun operation.
type FetchInput struct {
	Selector
	IncludeDeleted bool // only honored when addressing by ID
}

// FetchRun retrieves one run with its files, by ID or as the latest run of
// a project.
func FetchRun(ctx context.Context, database *sql.DB, input FetchInput) (*run.Run, error) {
	sel, err := input.Selector.resolve()
	if err != nil {
		return nil, err
	}
	if sel.ID != "" {
		return db.GetRunByID(ctx, database, sel.ID, input.IncludeDeleted)
	}
	return db.GetLatestRun(ctx, database, sel.Project)
}
