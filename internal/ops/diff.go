package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/rnupgrade/internal/diff"
	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/run"
)

// DiffSource supplies raw upgrade diffs.
type DiffSource interface {
	Fetch(ctx context.Context, from, to string) (string, error)
}

// DiffFilesInput contains parameters for the DiffFiles operation.
type DiffFilesInput struct {
	FromVersion string
	ToVersion   string
	Ignore      []string // doublestar globs
	IncludeDiff bool
}

// DiffFile is one changed file and the state an upgrade would start it in.
type DiffFile struct {
	Path    string `json:"path"`
	Change  string `json:"change"`
	Reason  string `json:"reason,omitempty"`
	New     bool   `json:"new"`
	Deleted bool   `json:"deleted"`
	Diff    string `json:"diff,omitempty"`
}

// DiffFilesOutput contains the result of the DiffFiles operation.
type DiffFilesOutput struct {
	FromVersion string     `json:"from_version"`
	ToVersion   string     `json:"to_version"`
	Files       []DiffFile `json:"files"`
	Pending     int        `json:"pending"`
	Ignored     int        `json:"ignored"`
}

// DiffFiles fetches the upgrade diff and lists its files in path order.
func DiffFiles(ctx context.Context, source DiffSource, input DiffFilesInput) (*DiffFilesOutput, error) {
	for _, v := range []string{input.FromVersion, input.ToVersion} {
		if !run.ValidVersion(v) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid version %q (want e.g. 0.71.0)", v))
		}
	}

	text, err := source.Fetch(ctx, input.FromVersion, input.ToVersion)
	if err != nil {
		return nil, err
	}

	records := diff.Parse(text)
	ignored := diff.Classify(records, input.Ignore)

	out := &DiffFilesOutput{
		FromVersion: input.FromVersion,
		ToVersion:   input.ToVersion,
		Files:       make([]DiffFile, 0, len(records)),
		Pending:     len(records) - ignored,
		Ignored:     ignored,
	}
	for _, path := range diff.Paths(records) {
		rec := records[path]
		f := DiffFile{
			Path:    path,
			Change:  string(rec.Change),
			Reason:  rec.Error,
			New:     diff.IsNewFile(rec),
			Deleted: diff.IsDeletedFile(rec),
		}
		if input.IncludeDiff {
			f.Diff = rec.Diff
		}
		out.Files = append(out.Files, f)
	}
	return out, nil
}
