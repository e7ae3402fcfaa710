// Package report renders a recorded run for humans.
package report

import (
	"bytes"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/run"
)

// Format is an output format for a rendered run.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "md", "markdown" and "html".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("unknown report format %q (want md or html)", s))
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatHTML {
		return ".html"
	}
	return ".md"
}

// changeOrder fixes the row order of the counts table.
var changeOrder = []string{"modified", "created", "deleted", "skipped", "ignored", "error", "pending", "upgrading"}

// Markdown renders a run as a markdown document.
func Markdown(r *run.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# React Native upgrade %s → %s\n\n", r.FromVersion, r.ToVersion)
	fmt.Fprintf(&b, "- **Run:** `%s`\n", r.ID)
	fmt.Fprintf(&b, "- **Project:** `%s`\n", r.Project)
	fmt.Fprintf(&b, "- **Model:** %s\n", r.Model)
	fmt.Fprintf(&b, "- **Started:** %s\n", formatTime(r.CreatedAt))
	fmt.Fprintf(&b, "- **Finished:** %s\n", formatTime(r.FinishedAt))
	mode := "automatic"
	if r.Interactive {
		mode = "interactive"
	}
	fmt.Fprintf(&b, "- **Mode:** %s\n", mode)
	fmt.Fprintf(&b, "- **Tokens:** %d prompt, %d completion\n", r.PromptTokens, r.CompletionTokens)
	if r.Cost != "" {
		fmt.Fprintf(&b, "- **Estimated cost:** %s\n", r.Cost)
	}
	if r.Exited {
		b.WriteString("\n> The run was stopped before every file was processed.\n")
	}

	counts := r.Counts()
	if len(counts) > 0 {
		b.WriteString("\n## Summary\n\n| Change | Files |\n|---|---|\n")
		for _, c := range orderedChanges(counts) {
			fmt.Fprintf(&b, "| %s | %d |\n", c, counts[c])
		}
	}

	if len(r.Files) > 0 {
		b.WriteString("\n## Files\n\n| Path | Change | Note |\n|---|---|---|\n")
		for _, f := range r.Files {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", f.Path, f.Change, escapeCell(f.Error))
		}
	}

	var prompted []run.File
	for _, f := range r.Files {
		if len(f.CustomPrompts) > 0 {
			prompted = append(prompted, f)
		}
	}
	if len(prompted) > 0 {
		b.WriteString("\n## Retry instructions\n")
		for _, f := range prompted {
			fmt.Fprintf(&b, "\n### `%s`\n\n", f.Path)
			for _, p := range f.CustomPrompts {
				fmt.Fprintf(&b, "- %s\n", oneLine(p))
			}
		}
	}

	return b.String()
}

// Fragment renders the markdown report as an HTML fragment.
func Fragment(r *run.Run) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(r)), &body); err != nil {
		return nil, errors.NewInternal(err)
	}
	return body.Bytes(), nil
}

// HTML renders a run as a standalone HTML page.
func HTML(r *run.Run) ([]byte, error) {
	body, err := Fragment(r)
	if err != nil {
		return nil, err
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Upgrade %s to %s</title>\n</head>\n<body>\n",
		html.EscapeString(r.FromVersion), html.EscapeString(r.ToVersion))
	page.Write(body)
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// Render dispatches on format.
func Render(r *run.Run, f Format) ([]byte, error) {
	if f == FormatHTML {
		return HTML(r)
	}
	return []byte(Markdown(r)), nil
}

func orderedChanges(counts map[string]int) []string {
	known := make(map[string]bool, len(changeOrder))
	out := make([]string, 0, len(counts))
	for _, c := range changeOrder {
		known[c] = true
		if counts[c] > 0 {
			out = append(out, c)
		}
	}
	var rest []string
	for c := range counts {
		if !known[c] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04 UTC")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
