// Package assemble builds the message sequence sent to the model for one
// conversational turn.
package assemble

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/rnupgrade/internal/budget"
	"github.com/hpungsan/rnupgrade/internal/relevance"
	"github.com/hpungsan/rnupgrade/internal/session"
)

// Placeholder results emitted for replayed reads whose contents are withheld.
const (
	OmittedNotRelevant = "File contents omitted: not relevant enough (similarity)"
	OmittedNoRoom      = "File contents omitted: not enough room"
	OmittedShownAbove  = "File contents omitted: already shown above"
)

// Reader reads current on-disk file contents.
type Reader interface {
	ReadFile(path string) (string, error)
}

// Limits bound what one turn may carry.
type Limits struct {
	FileLength      int     // per-file character ceiling
	TotalFileLength int     // aggregate character ceiling across inlined files
	Threshold       float64 // minimum similarity for re-presentation
	HistoryWindow   int     // trailing messages considered for replay, newest included
}

// DefaultLimits mirror config.DefaultConfig.
func DefaultLimits() Limits {
	return Limits{
		FileLength:      8000,
		TotalFileLength: 24000,
		Threshold:       relevance.DefaultThreshold,
		HistoryWindow:   10,
	}
}

// Assembler builds turn prompts from a session.
type Assembler struct {
	Files  Reader
	Logger *slog.Logger
	Limits Limits
}

// New creates an Assembler. A nil logger discards the trace.
func New(files Reader, logger *slog.Logger, limits Limits) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{Files: files, Logger: logger, Limits: limits}
}

// trace collects what went into one prompt.
type trace struct {
	project   bool
	listed    int
	replayed  int
	inlined   []string
	withheld  []string
	forgotten []string
	synthetic []string
	task      bool
	latest    bool
	total     int
}

// Build returns the ordered messages for the next model call. It may drop
// files that are no longer readable from sc.Files.
func (a *Assembler) Build(sc *session.Context) []session.Message {
	var out []session.Message
	var tr trace

	if sc.Project != "" {
		out = append(out, session.UserMessage("Project description:\n"+sc.Project))
		tr.project = true
	}

	if len(sc.Files) > 0 {
		ranked := relevance.Rank(sc.Files, sc.CurrentTaskEmbeddings, sc.CurrentFile, a.Limits.Threshold)

		out = append(out, session.UserMessage(knownFiles(sc.Files, ranked)))
		tr.listed = len(sc.Files)

		eligible, total := a.eligible(ranked)
		tr.total = total

		out = a.replay(out, sc, eligible, &tr)

		for _, r := range eligible.order {
			if !eligible.has(r.File.Path) {
				continue
			}
			contents, ok := a.contentsFor(sc, r.File)
			if !ok {
				tr.forgotten = append(tr.forgotten, r.File.Path)
				continue
			}
			out = append(out,
				session.FunctionCallMessage(session.FuncReadFile, readFileArgs(r.File.Path)),
				session.FunctionResult(session.FuncReadFile, contents),
			)
			tr.synthetic = append(tr.synthetic, r.File.Path)
		}
	}

	if sc.CurrentTask != "" {
		out = append(out, session.UserMessage("Current task:\n"+sc.CurrentTask))
		tr.task = true
	}

	if last, ok := sc.Last(); ok {
		out = append(out, last)
		tr.latest = true
	}

	a.log(tr)
	return out
}

// eligibleSet is the budget-eligible subset of ranked files, in rank order.
type eligibleSet struct {
	order    []relevance.Ranked
	paths    map[string]bool
	relevant map[string]bool
}

func (e *eligibleSet) has(path string) bool { return e.paths[path] }
func (e *eligibleSet) drop(path string)     { delete(e.paths, path) }

// eligible greedily takes ranked files while the running total of
// min(size, FileLength) stays under TotalFileLength. The file that would
// reach the ceiling and everything after it are excluded.
func (a *Assembler) eligible(ranked []relevance.Ranked) (*eligibleSet, int) {
	set := &eligibleSet{paths: make(map[string]bool), relevant: make(map[string]bool)}
	for _, r := range ranked {
		set.relevant[r.File.Path] = true
	}

	total := 0
	for _, r := range ranked {
		size := r.File.Size()
		if a.Limits.FileLength > 0 && size > a.Limits.FileLength {
			size = a.Limits.FileLength
		}
		if total+size >= a.Limits.TotalFileLength {
			break
		}
		total += size
		set.order = append(set.order, r)
		set.paths[r.File.Path] = true
	}
	return set, total
}

// replay re-emits the prior window of history (the latest message excluded)
// and re-inlines fresh contents after each earlier readFile call.
func (a *Assembler) replay(out []session.Message, sc *session.Context, eligible *eligibleSet, tr *trace) []session.Message {
	n := len(sc.Messages)
	start := n - a.Limits.HistoryWindow
	if start < 0 {
		start = 0
	}

	shown := make(map[string]bool)
	for i := start; i < n-1; i++ {
		m := sc.Messages[i]

		// Stored read results are stale; fresh contents are inlined below.
		if m.Role == session.RoleFunction && m.Name == session.FuncReadFile {
			continue
		}

		out = append(out, m)
		tr.replayed++

		if m.Role != session.RoleAssistant || m.FunctionCall == nil || m.FunctionCall.Name != session.FuncReadFile {
			continue
		}

		path, err := readFilePath(m.FunctionCall.Arguments)
		if err != nil {
			out = append(out, session.FunctionResult(session.FuncReadFile, "Invalid arguments: "+err.Error()))
			continue
		}

		if shown[path] {
			out = append(out, session.FunctionResult(session.FuncReadFile, OmittedShownAbove))
			continue
		}

		contents, err := a.Files.ReadFile(path)
		if err != nil {
			sc.Forget(path)
			eligible.drop(path)
			tr.forgotten = append(tr.forgotten, path)
			continue
		}

		if !eligible.has(path) {
			reason := OmittedNotRelevant
			if eligible.relevant[path] {
				reason = OmittedNoRoom
			}
			out = append(out, session.FunctionResult(session.FuncReadFile, reason))
			tr.withheld = append(tr.withheld, path)
			continue
		}

		out = append(out, session.FunctionResult(session.FuncReadFile, budget.Truncate(contents, a.Limits.FileLength)))
		eligible.drop(path)
		shown[path] = true
		tr.inlined = append(tr.inlined, path)
		tr.total += utf8.RuneCountInString(contents)
	}
	return out
}

// contentsFor returns the text shown for a synthetic read, falling back to
// disk when the session holds no contents.
func (a *Assembler) contentsFor(sc *session.Context, f *session.FileEntry) (string, bool) {
	if f.Shortened != "" {
		return f.Shortened, true
	}
	if f.Contents != nil {
		return budget.Truncate(*f.Contents, a.Limits.FileLength), true
	}
	contents, err := a.Files.ReadFile(f.Path)
	if err != nil {
		sc.Forget(f.Path)
		return "", false
	}
	return budget.Truncate(contents, a.Limits.FileLength), true
}

func (a *Assembler) log(tr trace) {
	a.Logger.Info("context assembled",
		"project", tr.project,
		"files_listed", tr.listed,
		"replayed", tr.replayed,
		"inlined", strings.Join(tr.inlined, ","),
		"withheld", strings.Join(tr.withheld, ","),
		"forgotten", strings.Join(tr.forgotten, ","),
		"read", strings.Join(tr.synthetic, ","),
		"file_chars", tr.total,
		"task", tr.task,
		"latest", tr.latest,
	)
}

// knownFiles renders every known path, relevant ones first with their
// relevance percentage.
func knownFiles(files map[string]*session.FileEntry, ranked []relevance.Ranked) string {
	var b strings.Builder
	b.WriteString("Files known so far:\n")

	sims := relevance.Similarities(ranked)
	for _, r := range ranked {
		fmt.Fprintf(&b, "- %s (%d%% relevant)\n", r.File.Path, int(math.Floor(sims[r.File.Path]*100)))
	}

	rest := make([]string, 0, len(files)-len(sims))
	for p := range files {
		if _, ok := sims[p]; !ok {
			rest = append(rest, p)
		}
	}
	sort.Strings(rest)
	for _, p := range rest {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

type readFileArgsBody struct {
	Path string `json:"path"`
}

func readFileArgs(path string) string {
	data, _ := json.Marshal(readFileArgsBody{Path: path})
	return string(data)
}

func readFilePath(arguments string) (string, error) {
	var body readFileArgsBody
	if err := json.Unmarshal([]byte(arguments), &body); err != nil {
		return "", err
	}
	if body.Path == "" {
		return "", fmt.Errorf("path is required")
	}
	return body.Path, nil
}
