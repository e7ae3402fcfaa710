package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/hpungsan/rnupgrade/internal/config"
	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/ops"
	"github.com/hpungsan/rnupgrade/internal/report"
)

// Handlers contains HTTP route handlers for the history browser.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// HandleList handles GET /runs, optionally filtered to one project.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	input := ops.ListInput{
		Project:        project,
		Limit:          parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:         parseIntParam(r, "offset", 0),
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	}

	result, err := ops.ListRuns(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderer.renderPage(w, "list", ListPageData{
		PageData:   PageData{Title: "Upgrade runs", Version: h.renderer.version},
		Items:      result.Items,
		Pagination: result.Pagination,
		Project:    project,
		Deleted:    input.IncludeDeleted,
	})
}

// HandleDetail handles GET /runs/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	rn, err := ops.FetchRun(r.Context(), h.db, ops.FetchInput{
		Selector:       ops.Selector{ID: r.PathValue("id")},
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, rn)
		return
	}

	body, err := report.Fragment(rn)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData:     PageData{Title: fmt.Sprintf("%s → %s", rn.FromVersion, rn.ToVersion), Version: h.renderer.version},
		Run:          rn,
		RenderedHTML: template.HTML(body),
	})
}

// HandleReport handles GET /runs/{id}/report?format=md|html and serves the
// report as a download.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	rn, err := ops.FetchRun(r.Context(), h.db, ops.FetchInput{Selector: ops.Selector{ID: r.PathValue("id")}})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data, err := report.Render(rn, format)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	contentType := "text/markdown; charset=utf-8"
	if format == report.FormatHTML {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, rn.ID, format.Ext()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleDelete handles DELETE /runs/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DeleteRun(r.Context(), h.db, ops.DeleteInput{Selector: ops.Selector{ID: r.PathValue("id")}})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/runs", http.StatusFound)
}

// HandlePurge handles POST /runs/purge. The form must carry confirm=true.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(`confirm parameter must be "true"`))
		return
	}

	input := ops.PurgeInput{}
	if project := r.FormValue("project"); project != "" {
		input.Project = &project
	}
	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.PurgeRuns(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/runs?include_deleted=true", http.StatusFound)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
