package upgrade

import (
	"context"

	"github.com/hpungsan/rnupgrade/internal/budget"
	"github.com/hpungsan/rnupgrade/internal/diff"
	"github.com/hpungsan/rnupgrade/internal/llm"
)

// Summary is the outcome of one run.
type Summary struct {
	Counts  map[diff.Change]int
	Exited  bool // operator stopped before every file was processed
	Usage   llm.Usage
	Cost    string
	Records []*diff.FileRecord
}

// Run classifies records and processes them in path order until every file
// is done or the operator exits. Per-file failures are recorded on the
// records; only cancellation and prompter errors abort the run.
func (u *Upgrader) Run(ctx context.Context, records map[string]*diff.FileRecord, ignore []string) (*Summary, error) {
	if n := diff.Classify(records, ignore); n > 0 {
		u.log().Info("files ignored", "count", n)
	}

	sum := &Summary{Counts: make(map[diff.Change]int)}
	for _, path := range diff.Paths(records) {
		rec := records[path]
		sum.Records = append(sum.Records, rec)
		if sum.Exited {
			continue
		}

		exit, err := u.ProcessFile(ctx, rec)
		if err != nil {
			return nil, err
		}
		if exit {
			sum.Exited = true
			u.log().Info("run stopped by operator", "path", path)
		}
	}

	for _, rec := range sum.Records {
		sum.Counts[rec.Change]++
	}
	sum.Usage = u.Usage
	sum.Cost = budget.CostEstimate(u.Usage.PromptTokens, u.Usage.CompletionTokens, u.Model)
	return sum, nil
}
