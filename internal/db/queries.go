package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/run"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.UpgradeError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// InsertRun stores a run and its files in one transaction.
func InsertRun(ctx context.Context, db *sql.DB, r *run.Run) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() // no-op after commit

	query := `
		INSERT INTO runs (
			id, project, from_version, to_version, model,
			interactive, exited, prompt_tokens, completion_tokens, cost,
			created_at, finished_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`
	_, err = tx.ExecContext(ctx, query,
		r.ID, r.Project, r.FromVersion, r.ToVersion, r.Model,
		r.Interactive, r.Exited, r.PromptTokens, r.CompletionTokens, r.Cost,
		r.CreatedAt, r.FinishedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_files (run_id, path, change, error, custom_prompts_json)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, f := range r.Files {
		var promptsJSON sql.NullString
		if len(f.CustomPrompts) > 0 {
			data, err := json.Marshal(f.CustomPrompts)
			if err != nil {
				return errors.NewInternal(err)
			}
			promptsJSON = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.ID, f.Path, f.Change, toNullString(f.Error), promptsJSON); err != nil {
			if isUniqueConstraintError(err) {
				return ErrUniqueConstraint
			}
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const runColumns = `
	id, project, from_version, to_version, model,
	interactive, exited, prompt_tokens, completion_tokens, cost,
	created_at, finished_at, deleted_at
`

// GetRunByID retrieves a run with its files by ULID.
// If includeDeleted is false, soft-deleted runs are excluded.
func GetRunByID(ctx context.Context, db *sql.DB, id string, includeDeleted bool) (*run.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	r, err := scanRun(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	files, err := listRunFiles(ctx, db, id)
	if err != nil {
		return nil, err
	}
	r.Files = files
	return r, nil
}

// GetLatestRun retrieves the most recent run for a project.
func GetLatestRun(ctx context.Context, db *sql.DB, project string) (*run.Run, error) {
	var id string
	err := db.QueryRowContext(ctx, `
		SELECT id FROM runs
		WHERE project = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, project).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(project)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return GetRunByID(ctx, db, id, false)
}

// ListRuns returns run summaries newest first, with the total count
// matching the filter. An empty project lists every project.
func ListRuns(ctx context.Context, db *sql.DB, project string, limit, offset int, includeDeleted bool) ([]run.Summary, int, error) {
	where := []string{"1=1"}
	var args []any
	if project != "" {
		where = append(where, "project = ?")
		args = append(args, project)
	}
	if !includeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + runColumns + ` FROM runs WHERE ` + cond + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var runs []*run.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	rows.Close()

	summaries := make([]run.Summary, 0, len(runs))
	for _, r := range runs {
		files, err := listRunFiles(ctx, db, r.ID)
		if err != nil {
			return nil, 0, err
		}
		r.Files = files
		summaries = append(summaries, r.ToSummary())
	}
	return summaries, total, nil
}

// SoftDeleteRun marks a run as deleted by setting deleted_at.
func SoftDeleteRun(ctx context.Context, db *sql.DB, id string) error {
	now := time.Now().Unix()

	result, err := db.ExecContext(ctx, `
		UPDATE runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// PurgeDeleted permanently removes soft-deleted runs, optionally limited to
// one project and to runs deleted more than olderThanDays ago.
func PurgeDeleted(ctx context.Context, db *sql.DB, project *string, olderThanDays *int) (int, error) {
	query := "DELETE FROM runs WHERE deleted_at IS NOT NULL"
	var args []any
	if project != nil {
		query += " AND project = ?"
		args = append(args, *project)
	}
	if olderThanDays != nil {
		cutoff := time.Now().Add(-time.Duration(*olderThanDays) * 24 * time.Hour).Unix()
		query += " AND deleted_at < ?"
		args = append(args, cutoff)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

func listRunFiles(ctx context.Context, db *sql.DB, runID string) ([]run.File, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT path, change, error, custom_prompts_json
		FROM run_files
		WHERE run_id = ?
		ORDER BY path
	`, runID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	files := []run.File{}
	for rows.Next() {
		var (
			f           run.File
			errText     sql.NullString
			promptsJSON sql.NullString
		)
		if err := rows.Scan(&f.Path, &f.Change, &errText, &promptsJSON); err != nil {
			return nil, errors.NewInternal(err)
		}
		f.Error = errText.String
		if promptsJSON.Valid && promptsJSON.String != "" {
			if err := json.Unmarshal([]byte(promptsJSON.String), &f.CustomPrompts); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return files, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a Run struct.
func scanRun(row rowScanner) (*run.Run, error) {
	var (
		r         run.Run
		deletedAt sql.NullInt64
	)

	err := row.Scan(
		&r.ID, &r.Project, &r.FromVersion, &r.ToVersion, &r.Model,
		&r.Interactive, &r.Exited, &r.PromptTokens, &r.CompletionTokens, &r.Cost,
		&r.CreatedAt, &r.FinishedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		r.DeletedAt = &deletedAt.Int64
	}
	return &r, nil
}

// toNullString converts an empty string to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
