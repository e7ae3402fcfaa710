package mcp

import "github.com/mark3labs/mcp-go/mcp"

var diffFilesToolDef = mcp.NewTool("diff_files",
	mcp.WithDescription("List the files changed by the upstream React Native template between two versions, "+
		"with the state each file would start an upgrade in (pending, or ignored for binary and ignored paths)."),
	mcp.WithString("from_version", mcp.Required(), mcp.Description("Current version, e.g. 0.70.0")),
	mcp.WithString("to_version", mcp.Required(), mcp.Description("Target version, e.g. 0.71.0")),
	mcp.WithBoolean("include_diff", mcp.Description("Include each file's unified diff text")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var runListToolDef = mcp.NewTool("run_list",
	mcp.WithDescription("List recorded upgrade runs, newest first."),
	mcp.WithString("project", mcp.Description("Project folder to filter by; omit for every project")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted runs")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var runFetchToolDef = mcp.NewTool("run_fetch",
	mcp.WithDescription("Fetch one upgrade run with its per-file outcomes, by id or as the latest run of a project."),
	mcp.WithString("id", mcp.Description("Run ID")),
	mcp.WithString("project", mcp.Description("Project folder; selects its latest run")),
	mcp.WithBoolean("include_deleted", mcp.Description("Allow fetching a soft-deleted run by id")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var runReportToolDef = mcp.NewTool("run_report",
	mcp.WithDescription("Render an upgrade run as a markdown or HTML report. "+
		"With save=true the report is also written to the reports directory."),
	mcp.WithString("id", mcp.Description("Run ID")),
	mcp.WithString("project", mcp.Description("Project folder; selects its latest run")),
	mcp.WithString("format", mcp.Description("md (default) or html"), mcp.Enum("md", "html")),
	mcp.WithBoolean("save", mcp.Description("Write the report file and return its path")),
)
