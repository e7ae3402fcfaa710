package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/rnupgrade/internal/config"
	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/ops"
	"github.com/hpungsan/rnupgrade/internal/report"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	diffs      ops.DiffSource
	reportsDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, diffs ops.DiffSource, reportsDir string) *Handlers {
	return &Handlers{db: db, cfg: cfg, diffs: diffs, reportsDir: reportsDir}
}

// Request types for each tool

// DiffFilesRequest represents the arguments for diff_files.
type DiffFilesRequest struct {
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
	IncludeDiff bool   `json:"include_diff,omitempty"`
}

// RunListRequest represents the arguments for run_list.
type RunListRequest struct {
	Project        string `json:"project,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// RunFetchRequest represents the arguments for run_fetch.
type RunFetchRequest struct {
	ID             string `json:"id,omitempty"`
	Project        string `json:"project,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// RunReportRequest represents the arguments for run_report.
type RunReportRequest struct {
	ID      string `json:"id,omitempty"`
	Project string `json:"project,omitempty"`
	Format  string `json:"format,omitempty"`
	Save    bool   `json:"save,omitempty"`
}

// RunReportOutput is the run_report result.
type RunReportOutput struct {
	ID      string `json:"id"`
	Format  string `json:"format"`
	Content string `json:"content"`
	Path    string `json:"path,omitempty"`
}

// Handler implementations

// HandleDiffFiles handles the diff_files tool call.
func (h *Handlers) HandleDiffFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input DiffFilesRequest
	if err := bindArgs(req, &input); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.DiffFiles(ctx, h.diffs, ops.DiffFilesInput{
		FromVersion: input.FromVersion,
		ToVersion:   input.ToVersion,
		Ignore:      h.cfg.IgnorePatterns,
		IncludeDiff: input.IncludeDiff,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRunList handles the run_list tool call.
func (h *Handlers) HandleRunList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RunListRequest
	if err := bindArgs(req, &input); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListRuns(ctx, h.db, ops.ListInput{
		Project:        input.Project,
		Limit:          input.Limit,
		Offset:         input.Offset,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRunFetch handles the run_fetch tool call.
func (h *Handlers) HandleRunFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RunFetchRequest
	if err := bindArgs(req, &input); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.FetchRun(ctx, h.db, ops.FetchInput{
		Selector:       ops.Selector{ID: input.ID, Project: input.Project},
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRunReport handles the run_report tool call.
func (h *Handlers) HandleRunReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RunReportRequest
	if err := bindArgs(req, &input); err != nil {
		return errorResult(err), nil
	}

	format, err := report.ParseFormat(input.Format)
	if err != nil {
		return errorResult(err), nil
	}
	sel := ops.Selector{ID: input.ID, Project: input.Project}

	r, err := ops.FetchRun(ctx, h.db, ops.FetchInput{Selector: sel})
	if err != nil {
		return errorResult(err), nil
	}
	content, err := report.Render(r, format)
	if err != nil {
		return errorResult(err), nil
	}

	out := RunReportOutput{ID: r.ID, Format: string(format), Content: string(content)}
	if input.Save {
		saved, err := ops.ExportReport(ctx, h.db, h.reportsDir, ops.ExportInput{
			Selector: ops.Selector{ID: r.ID},
			Format:   string(format),
		})
		if err != nil {
			return errorResult(err), nil
		}
		out.Path = saved.Path
	}

	return successResult(out)
}

// bindArgs round-trips the tool arguments through JSON into dst, so a
// client sending a string where a number belongs gets INVALID_REQUEST.
func bindArgs(req mcp.CallToolRequest, dst any) error {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if uErr, ok := errors.As(err); ok {
		msg := uErr.Message
		if err != error(uErr) {
			// keep wrapper context
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    uErr.Code,
			"message": msg,
			"status":  uErr.Status,
		}
		if uErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if uErr.Details != nil {
			errorObj["details"] = uErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
