package upgrade

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/hpungsan/rnupgrade/internal/diff"
)

// Decision is the operator's choice after a round.
type Decision int

const (
	DecisionNext Decision = iota
	DecisionSkip
	DecisionRetry
	DecisionKeepExit
	DecisionUndoExit
)

func (d Decision) String() string {
	switch d {
	case DecisionNext:
		return "next"
	case DecisionSkip:
		return "skip"
	case DecisionRetry:
		return "retry"
	case DecisionKeepExit:
		return "keepExit"
	case DecisionUndoExit:
		return "undoExit"
	}
	return "unknown"
}

// Prompter is the human side of the review loop.
type Prompter interface {
	// Announce tells the operator what happened to a file.
	Announce(path, msg string)
	// Review asks for a decision on an applied result. The string is the
	// instruction to add when the decision is DecisionRetry.
	Review(ctx context.Context, rec *diff.FileRecord, res Result) (Decision, string, error)
	// Recover asks whether to retry or skip after a recoverable failure.
	// Only DecisionRetry and DecisionSkip are meaningful.
	Recover(ctx context.Context, rec *diff.FileRecord, cause error) (Decision, error)
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// AutoPrompter accepts every applied result and skips on failure.
type AutoPrompter struct {
	Out io.Writer
}

func (p *AutoPrompter) Announce(path, msg string) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, "%s: %s\n", path, msg)
	}
}

func (p *AutoPrompter) Review(context.Context, *diff.FileRecord, Result) (Decision, string, error) {
	return DecisionNext, "", nil
}

func (p *AutoPrompter) Recover(context.Context, *diff.FileRecord, error) (Decision, error) {
	return DecisionSkip, nil
}

// TerminalPrompter asks the operator on a line-oriented terminal.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter reads answers from in and writes menus to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *TerminalPrompter) Announce(path, msg string) {
	fmt.Fprintf(p.out, "%s %s\n", color.CyanString(path), color.YellowString(msg))
}

func (p *TerminalPrompter) Review(ctx context.Context, rec *diff.FileRecord, res Result) (Decision, string, error) {
	fmt.Fprintf(p.out, "%s %s %s\n", color.GreenString("✓"), color.CyanString(rec.Path), color.HiBlackString(string(res.Change)))

	for {
		answer, err := p.ask(ctx, "[n]ext, [s]kip, [r]etry, [k]eep and exit, [u]ndo and exit: ")
		if err != nil {
			return 0, "", err
		}
		switch answer {
		case "n", "next", "":
			return DecisionNext, "", nil
		case "s", "skip":
			return DecisionSkip, "", nil
		case "k", "keep":
			return DecisionKeepExit, "", nil
		case "u", "undo":
			return DecisionUndoExit, "", nil
		case "r", "retry":
			instruction, err := p.askRaw(ctx, "Additional instructions: ")
			if err != nil {
				return 0, "", err
			}
			return DecisionRetry, instruction, nil
		}
		fmt.Fprintln(p.out, color.RedString("unrecognized choice %q", answer))
	}
}

func (p *TerminalPrompter) Recover(ctx context.Context, rec *diff.FileRecord, cause error) (Decision, error) {
	for {
		answer, err := p.ask(ctx, "[r]etry or [s]kip: ")
		if err != nil {
			return 0, err
		}
		switch answer {
		case "r", "retry":
			return DecisionRetry, nil
		case "s", "skip", "":
			return DecisionSkip, nil
		}
		fmt.Fprintln(p.out, color.RedString("unrecognized choice %q", answer))
	}
}

func (p *TerminalPrompter) ask(ctx context.Context, prompt string) (string, error) {
	line, err := p.askRaw(ctx, prompt)
	return strings.ToLower(line), err
}

// askRaw reads one trimmed line. End of input surfaces as io.EOF.
func (p *TerminalPrompter) askRaw(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, color.HiWhiteString(prompt))
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
