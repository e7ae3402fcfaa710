package mcp

import (
	"database/sql"
	"slices"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/rnupgrade/internal/config"
	"github.com/hpungsan/rnupgrade/internal/ops"
)

// tools binds every tool definition to its handler on h.
func tools(h *Handlers) []server.ServerTool {
	return []server.ServerTool{
		{Tool: diffFilesToolDef, Handler: h.HandleDiffFiles},
		{Tool: runListToolDef, Handler: h.HandleRunList},
		{Tool: runFetchToolDef, Handler: h.HandleRunFetch},
		{Tool: runReportToolDef, Handler: h.HandleRunReport},
	}
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	all := tools(&Handlers{})
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Tool.Name
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns the names that match no tool.
func ValidateDisabledTools(names []string) []string {
	known := AllToolNames()
	unknown := make([]string, 0)
	for _, name := range names {
		if _, found := slices.BinarySearch(known, name); !found {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server exposing diffs and run history.
// Tools listed in cfg.DisabledTools are not registered.
func NewServer(db *sql.DB, cfg *config.Config, diffs ops.DiffSource, reportsDir, version string) *server.MCPServer {
	s := server.NewMCPServer("rnupgrade", version, server.WithToolCapabilities(true))

	enabled := slices.DeleteFunc(tools(NewHandlers(db, cfg, diffs, reportsDir)), func(t server.ServerTool) bool {
		return slices.Contains(cfg.DisabledTools, t.Tool.Name)
	})
	if len(enabled) > 0 {
		s.AddTools(enabled...)
	}
	return s
}

// Run serves the MCP tools over stdio until the client disconnects.
func Run(db *sql.DB, cfg *config.Config, diffs ops.DiffSource, reportsDir, version string) error {
	return server.ServeStdio(NewServer(db, cfg, diffs, reportsDir, version))
}
