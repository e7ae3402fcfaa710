package upgrade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hpungsan/rnupgrade/internal/diff"
	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/llm"
	"github.com/hpungsan/rnupgrade/internal/session"
	"github.com/hpungsan/rnupgrade/internal/workspace"
)

// Errors recorded on a FileRecord.
const (
	ReasonFileNotFound = "file not found"
	ReasonTooLong      = "file too long"
	ReasonUnknown      = "unknown error"
	ReasonRateLimited  = "rate limited"
	ReasonMalformed    = "malformed function call"
)

// Completer is the chat completion call the upgrade loop depends on.
type Completer interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Upgrader applies the diff file by file.
type Upgrader struct {
	LLM      Completer
	Model    string
	Files    workspace.FS
	Ops      *Dispatcher
	Cache    *Cache
	Prompter Prompter
	Logger   *slog.Logger

	FromVersion string
	ToVersion   string

	// Usage accumulates token counts over all fresh model calls.
	Usage llm.Usage
}

// step is what the per-file loop does after a decision.
type step int

const (
	stepDone step = iota
	stepLoop
	stepExit
)

// ProcessFile drives one record to a terminal state. It returns true when
// the operator asked to stop processing further files.
func (u *Upgrader) ProcessFile(ctx context.Context, rec *diff.FileRecord) (bool, error) {
	if rec.Change.Terminal() {
		return false, nil
	}

	if !diff.IsNewFile(rec) && !u.Files.Exists(rec.Path) {
		u.fail(rec, diff.ChangeSkipped, ReasonFileNotFound)
		return false, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		rec.Change = diff.ChangeUpgrading

		resp, cached, err := u.complete(ctx, rec)
		if err != nil {
			next, err := u.onProviderError(ctx, rec, err)
			if err != nil {
				return false, err
			}
			if next == stepLoop {
				continue
			}
			return false, nil
		}

		op, err := ParseFunctionCall(resp.FunctionCall, MutatingOps...)
		if err != nil {
			if cached {
				if _, err := u.Cache.Evict(rec.Path); err != nil {
					return false, err
				}
			}
			next, err := u.recover(ctx, rec, err, ReasonMalformed)
			if err != nil {
				return false, err
			}
			if next == stepLoop {
				continue
			}
			return false, nil
		}

		if !cached {
			if err := u.Cache.Put(rec.Path, resp); err != nil {
				u.log().Warn("cache write failed", "path", rec.Path, "error", err)
			}
		}

		res, err := u.Ops.Dispatch(ctx, op)
		if err != nil {
			if errors.Is(err, errors.ErrFileNotFound) {
				u.fail(rec, diff.ChangeSkipped, ReasonFileNotFound)
			} else {
				u.fail(rec, diff.ChangeError, err.Error())
			}
			return false, nil
		}
		rec.Change = res.Change
		u.log().Info("file applied", "path", rec.Path, "op", op.Kind.String(), "target", op.Path, "change", string(res.Change))

		decision, instruction, err := u.Prompter.Review(ctx, rec, res)
		if err != nil {
			return false, err
		}
		next, err := u.decide(rec, decision, instruction, res.Undo)
		if err != nil {
			return false, err
		}
		switch next {
		case stepLoop:
			continue
		case stepExit:
			return true, nil
		}
		return false, nil
	}
}

// decide applies the operator's decision to rec.
func (u *Upgrader) decide(rec *diff.FileRecord, d Decision, instruction string, undo func() error) (step, error) {
	runUndo := func() error {
		if undo == nil {
			return nil
		}
		if err := undo(); err != nil {
			return fmt.Errorf("undo %s: %w", rec.Path, err)
		}
		return nil
	}

	switch d {
	case DecisionNext:
		return stepDone, nil
	case DecisionSkip:
		if err := runUndo(); err != nil {
			return stepDone, err
		}
		rec.Change = diff.ChangeSkipped
		return stepDone, nil
	case DecisionRetry:
		if err := runUndo(); err != nil {
			return stepDone, err
		}
		rec.CustomPrompts = append(rec.CustomPrompts, instruction)
		rec.Change = diff.ChangePending
		if _, err := u.Cache.Evict(rec.Path); err != nil {
			return stepDone, err
		}
		return stepLoop, nil
	case DecisionKeepExit:
		return stepExit, nil
	case DecisionUndoExit:
		if err := runUndo(); err != nil {
			return stepDone, err
		}
		rec.Change = diff.ChangeSkipped
		return stepExit, nil
	}
	return stepDone, fmt.Errorf("unknown decision %d", d)
}

// complete returns the cached response for the file or asks the model.
// Fresh responses are cached by the caller once they parse.
func (u *Upgrader) complete(ctx context.Context, rec *diff.FileRecord) (*llm.ChatResponse, bool, error) {
	if resp, ok := u.Cache.Get(rec.Path); ok {
		u.log().Debug("cached response", "path", rec.Path)
		return resp, true, nil
	}

	contents, exists := "", u.Files.Exists(rec.Path)
	if exists {
		var err error
		if contents, err = u.Files.ReadFile(rec.Path); err != nil {
			return nil, false, err
		}
	}

	resp, err := u.LLM.Chat(ctx, llm.ChatRequest{
		Model:        u.Model,
		Messages:     u.messages(rec, contents, exists),
		Functions:    Functions(MutatingOps...),
		FunctionCall: "auto",
	})
	if err != nil {
		return nil, false, err
	}
	u.Usage.PromptTokens += resp.Usage.PromptTokens
	u.Usage.CompletionTokens += resp.Usage.CompletionTokens
	return resp, false, nil
}

// onProviderError maps a failed model call onto a transition.
func (u *Upgrader) onProviderError(ctx context.Context, rec *diff.FileRecord, err error) (step, error) {
	switch {
	case errors.Is(err, errors.ErrRateLimited):
		return u.recover(ctx, rec, err, ReasonRateLimited)
	case errors.Is(err, errors.ErrContextTooLarge):
		u.fail(rec, diff.ChangeSkipped, ReasonTooLong)
		return stepDone, nil
	case ctx.Err() != nil:
		return stepDone, ctx.Err()
	}
	u.Prompter.Announce(rec.Path, err.Error())
	u.fail(rec, diff.ChangeSkipped, ReasonUnknown)
	return stepDone, nil
}

// recover announces a recoverable failure and lets the operator retry or skip.
func (u *Upgrader) recover(ctx context.Context, rec *diff.FileRecord, cause error, reason string) (step, error) {
	u.Prompter.Announce(rec.Path, llm.Describe(cause))
	d, err := u.Prompter.Recover(ctx, rec, cause)
	if err != nil {
		return stepDone, err
	}
	if d == DecisionRetry {
		rec.Change = diff.ChangePending
		if _, err := u.Cache.Evict(rec.Path); err != nil {
			return stepDone, err
		}
		return stepLoop, nil
	}
	rec.Change = diff.ChangeSkipped
	rec.Error = reason
	return stepDone, nil
}

func (u *Upgrader) fail(rec *diff.FileRecord, change diff.Change, reason string) {
	rec.Change = change
	rec.Error = reason
	u.Prompter.Announce(rec.Path, reason)
	u.log().Warn("file not upgraded", "path", rec.Path, "change", string(change), "error", reason)
}

func (u *Upgrader) log() *slog.Logger {
	if u.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return u.Logger
}

// messages builds one round's prompt: orientation, instructions with the
// diff, each accumulated operator instruction, then admonishments.
func (u *Upgrader) messages(rec *diff.FileRecord, contents string, exists bool) []session.Message {
	msgs := []session.Message{
		session.SystemMessage(fmt.Sprintf(orientation, u.FromVersion, u.ToVersion)),
		session.UserMessage(instructions(rec, contents, exists)),
	}
	for _, p := range rec.CustomPrompts {
		msgs = append(msgs, session.UserMessage(p))
	}
	return append(msgs, session.SystemMessage(admonishments))
}
