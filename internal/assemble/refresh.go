package assemble

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/hpungsan/rnupgrade/internal/budget"
	"github.com/hpungsan/rnupgrade/internal/session"
)

// Refresh reads path and updates its session entry. Contents, embeddings and
// the shortened form are recomputed only when the text differs from what the
// session holds, or when embeddings are missing.
func Refresh(ctx context.Context, sc *session.Context, files Reader, emb session.Embedder, path string, fileLimit int) (*session.FileEntry, error) {
	contents, err := files.ReadFile(path)
	if err != nil {
		sc.Forget(path)
		return nil, err
	}

	entry := sc.Files[path]
	if entry == nil {
		entry = &session.FileEntry{Path: path}
		sc.Files[path] = entry
	}
	if entry.Contents != nil && *entry.Contents == contents && len(entry.Embeddings) > 0 {
		return entry, nil
	}

	entry.Contents = session.Str(contents)
	entry.Length = utf8.RuneCountInString(contents)
	entry.Shortened = budget.Truncate(contents, fileLimit)
	entry.Embeddings = nil

	if emb != nil {
		v, err := emb.Embed(ctx, entry.Shortened)
		if err != nil {
			return entry, fmt.Errorf("embed %s: %w", path, err)
		}
		entry.Embeddings = v
	}
	return entry, nil
}

// SetTask records the current task and its embedding.
func SetTask(ctx context.Context, sc *session.Context, emb session.Embedder, task string) error {
	sc.CurrentTask = task
	sc.CurrentTaskEmbeddings = nil
	if task == "" || emb == nil {
		return nil
	}
	v, err := emb.Embed(ctx, task)
	if err != nil {
		return fmt.Errorf("embed task: %w", err)
	}
	sc.CurrentTaskEmbeddings = v
	return nil
}
