package ops

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hpungsan/rnupgrade/internal/db"
	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/run"
	"github.com/hpungsan/rnupgrade/internal/upgrade"
)

// RecordInput contains parameters for the RecordRun operation.
type RecordInput struct {
	Project     string // required, normalized to an absolute clean path
	FromVersion string // required
	ToVersion   string // required
	Model       string
	Interactive bool
	Summary     *upgrade.Summary // required
	StartedAt   time.Time        // default: now
}

// RecordOutput contains the result of the RecordRun operation.
type RecordOutput struct {
	ID        string `json:"id"`
	FileCount int    `json:"file_count"`
	CreatedAt int64  `json:"created_at"`
}

// RecordRun stores the outcome of an upgrade run.
func RecordRun(ctx context.Context, database *sql.DB, input RecordInput) (*RecordOutput, error) {
	project := run.NormalizeProject(input.Project)
	if project == "" {
		return nil, errors.NewInvalidRequest("project is required")
	}
	for _, v := range []string{input.FromVersion, input.ToVersion} {
		if !run.ValidVersion(v) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid version %q", v))
		}
	}
	if input.Summary == nil {
		return nil, errors.NewInvalidRequest("summary is required")
	}

	now := time.Now()
	started := input.StartedAt
	if started.IsZero() {
		started = now
	}

	id, err := generateULID(started)
	if err != nil {
		return nil, err
	}

	r := &run.Run{
		ID:               id,
		Project:          project,
		FromVersion:      input.FromVersion,
		ToVersion:        input.ToVersion,
		Model:            strings.TrimSpace(input.Model),
		Interactive:      input.Interactive,
		Exited:           input.Summary.Exited,
		PromptTokens:     input.Summary.Usage.PromptTokens,
		CompletionTokens: input.Summary.Usage.CompletionTokens,
		Cost:             input.Summary.Cost,
		Files:            make([]run.File, 0, len(input.Summary.Records)),
		CreatedAt:        started.Unix(),
		FinishedAt:       now.Unix(),
	}
	for _, rec := range input.Summary.Records {
		if rec == nil {
			continue
		}
		r.Files = append(r.Files, run.File{
			Path:          rec.Path,
			Change:        string(rec.Change),
			Error:         rec.Error,
			CustomPrompts: slices.Clone(rec.CustomPrompts),
		})
	}

	if err := db.InsertRun(ctx, database, r); err != nil {
		return nil, err
	}

	return &RecordOutput{
		ID:        id,
		FileCount: len(r.Files),
		CreatedAt: r.CreatedAt,
	}, nil
}
