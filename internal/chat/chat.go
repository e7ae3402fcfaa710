// Package chat runs a persistent conversation about the project, with the
// prompt for every turn built by the context assembler.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hpungsan/rnupgrade/internal/assemble"
	"github.com/hpungsan/rnupgrade/internal/budget"
	"github.com/hpungsan/rnupgrade/internal/llm"
	"github.com/hpungsan/rnupgrade/internal/session"
	"github.com/hpungsan/rnupgrade/internal/upgrade"
)

// Options tune a chat.
type Options struct {
	Model           string
	MaxToolRounds   int
	FileLimit       int
	MaxPromptTokens int
	AgeKeepRecent   int
	AgeMaxChars     int
}

// Chat answers operator messages, letting the model read and list files.
type Chat struct {
	LLM       upgrade.Completer
	Embedder  session.Embedder
	Files     assemble.Reader
	Ops       *upgrade.Dispatcher
	Assembler *assemble.Assembler
	Logger    *slog.Logger
	Options   Options

	// StorePath, when set, is where the session is saved after every turn.
	StorePath string

	// Usage accumulates token counts over the chat.
	Usage llm.Usage
}

// Turn appends input as a user message and returns the model's answer.
// Function calls are resolved in place, at most MaxToolRounds per turn.
func (c *Chat) Turn(ctx context.Context, sc *session.Context, input string) (string, error) {
	sc.Append(session.UserMessage(input))

	rounds := c.Options.MaxToolRounds
	if rounds < 1 {
		rounds = 1
	}

	for i := 0; i <= rounds; i++ {
		resp, err := c.complete(ctx, sc, i < rounds)
		if err != nil {
			c.save(sc)
			return "", err
		}

		if resp.FunctionCall == nil {
			sc.Append(session.AssistantMessage(resp.Content))
			c.finish(sc)
			return resp.Content, nil
		}

		sc.Append(session.FunctionCallMessage(resp.FunctionCall.Name, resp.FunctionCall.Arguments))
		name, output := c.call(ctx, sc, resp.FunctionCall)
		sc.Append(session.FunctionResult(name, output))
	}

	c.finish(sc)
	return "", fmt.Errorf("no answer after %d function calls", rounds)
}

// complete assembles the prompt and calls the model. Functions are withheld
// on the last allowed round so the model has to answer.
func (c *Chat) complete(ctx context.Context, sc *session.Context, allowFunctions bool) (*llm.ChatResponse, error) {
	msgs := c.Assembler.Build(sc)
	if limit := c.Options.MaxPromptTokens; limit > 0 && budget.SumTokens(msgs) > limit {
		before := len(msgs)
		msgs = budget.SelectMessagesWithinBudget(msgs, limit)
		c.log().Debug("prompt trimmed", "messages", before, "kept", len(msgs))
	}

	req := llm.ChatRequest{Model: c.Options.Model, Messages: msgs}
	if allowFunctions {
		req.Functions = upgrade.Functions(upgrade.ReadOnlyOps...)
		req.FunctionCall = "auto"
	}

	resp, err := c.LLM.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	c.Usage.PromptTokens += resp.Usage.PromptTokens
	c.Usage.CompletionTokens += resp.Usage.CompletionTokens
	c.log().Debug("chat round",
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"cost", budget.CostEstimate(c.Usage.PromptTokens, c.Usage.CompletionTokens, c.Options.Model),
	)
	return resp, nil
}

// call resolves one function call and returns the result name and text.
func (c *Chat) call(ctx context.Context, sc *session.Context, fc *session.FunctionCall) (string, string) {
	op, err := upgrade.ParseFunctionCall(fc, upgrade.ReadOnlyOps...)
	if err != nil {
		return fc.Name, "Error: " + err.Error()
	}

	if op.Kind == upgrade.OpReadFile {
		entry, err := assemble.Refresh(ctx, sc, c.Files, c.Embedder, op.Path, c.Options.FileLimit)
		if entry == nil {
			return fc.Name, "File not found: " + op.Path
		}
		if err != nil {
			c.log().Warn("embedding failed", "path", op.Path, "error", err)
		}
		sc.CurrentFile = op.Path
		return fc.Name, entry.Shortened
	}

	res, err := c.Ops.Dispatch(ctx, op)
	if err != nil {
		return fc.Name, "Error: " + err.Error()
	}
	return fc.Name, res.Output
}

func (c *Chat) finish(sc *session.Context) {
	if n := budget.Age(sc.Messages, c.Options.AgeKeepRecent, c.Options.AgeMaxChars); n > 0 {
		c.log().Debug("aged messages", "count", n)
	}
	c.save(sc)
}

func (c *Chat) save(sc *session.Context) {
	if c.StorePath == "" {
		return
	}
	if err := session.Save(c.StorePath, sc); err != nil {
		c.log().Error("session save failed", "path", c.StorePath, "error", err)
	}
}

func (c *Chat) log() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
