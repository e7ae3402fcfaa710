package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/rnupgrade/internal/db"
	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/run"
)

// PurgeInput contains parameters for the PurgeRuns operation.
type PurgeInput struct {
	Project       *string // optional filter by project
	OlderThanDays *int    // optional, only purge if deleted_at < (now - N days)
}

// PurgeOutput contains the result of the PurgeRuns operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// PurgeRuns permanently deletes soft-deleted runs and their files.
func PurgeRuns(ctx context.Context, database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	if input.OlderThanDays != nil && *input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must not be negative")
	}

	project := input.Project
	if project != nil {
		norm := run.NormalizeProject(*project)
		project = &norm
	}

	count, err := db.PurgeDeleted(ctx, database, project, input.OlderThanDays)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, project, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, project *string, olderThanDays *int) string {
	if count == 0 {
		return "No deleted runs to purge"
	}

	word := "run"
	if count > 1 {
		word = "runs"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, word)
	if project != nil {
		msg += fmt.Sprintf(" for project %q", *project)
	}
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (deleted more than %d days ago)", *olderThanDays)
	}
	return msg
}
