package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/rnupgrade/internal/db"
)

// DeleteInput contains parameters for the DeleteRun operation.
type DeleteInput struct {
	Selector
}

// DeleteOutput contains the result of the DeleteRun operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteRun soft-deletes a run.
func DeleteRun(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	r, err := FetchRun(ctx, database, FetchInput{Selector: input.Selector})
	if err != nil {
		return nil, err
	}

	if err := db.SoftDeleteRun(ctx, database, r.ID); err != nil {
		return nil, err
	}

	return &DeleteOutput{
		Deleted: true,
		ID:      r.ID,
	}, nil
}
