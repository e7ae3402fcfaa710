package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/rnupgrade/internal/assemble"
	"github.com/hpungsan/rnupgrade/internal/budget"
	"github.com/hpungsan/rnupgrade/internal/chat"
	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/llm"
	"github.com/hpungsan/rnupgrade/internal/session"
	"github.com/hpungsan/rnupgrade/internal/upgrade"
	"github.com/hpungsan/rnupgrade/internal/workspace"
)

const chatHelp = `Commands:
  /task <text>     set the current task; files are ranked against it
  /project <text>  set the project description
  /reset           forget the conversation and known files
  /exit            leave the chat`

// chatCmd creates the chat command.
func chatCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Talk to the model about the project; it can read and list files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "task", Aliases: []string{"t"}, Usage: "Set the current task before the first message"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Set the project description"},
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "Chat model (default from config)"},
		},
		Action: func(c *cli.Context) error {
			project, err := projectDir(c)
			if err != nil {
				return outputError(err)
			}
			model, err := env.model()
			if err != nil {
				return outputError(err)
			}

			storePath := sessionPath(env, project)
			sc, err := session.Load(storePath, project)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if d := c.String("description"); d != "" {
				sc.Project = d
			}
			if t := c.String("task"); t != "" {
				if err := assemble.SetTask(c.Context, sc, model, t); err != nil {
					return outputError(err)
				}
			}

			ch, err := newChat(env, project, model, c.String("model"), storePath)
			if err != nil {
				return outputError(err)
			}

			// Slash commands and flags change the session without a turn.
			loopErr := chatLoop(c, env, ch, sc, model)
			if err := session.Save(storePath, sc); err != nil {
				if loopErr == nil {
					return outputError(errors.NewInternal(err))
				}
				env.log().Warn("session save failed", "path", storePath, "error", err)
			}
			if loopErr != nil {
				return outputError(loopErr)
			}

			env.log().Info("chat ended",
				"messages", len(sc.Messages),
				"cost", budget.CostEstimate(ch.Usage.PromptTokens, ch.Usage.CompletionTokens, ch.Options.Model),
			)
			return nil
		},
	}
}

func newChat(env *appEnv, project string, model *llm.Retrying, modelName, storePath string) (*chat.Chat, error) {
	cfg := env.cfg
	fs := workspace.NewDir(project)
	fileOps := &upgrade.FileOps{FS: fs, Root: project, ListDepth: cfg.ListMaxDepth, ListIgnore: cfg.ListIgnore}
	dispatcher, err := fileOps.Dispatcher(upgrade.ReadOnlyOps...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if modelName == "" {
		modelName = cfg.Model
	}

	limits := assemble.Limits{
		FileLength:      cfg.FileLengthLimit,
		TotalFileLength: cfg.TotalFileLengthLimit,
		Threshold:       cfg.RelevanceThreshold,
		HistoryWindow:   cfg.HistoryWindow,
	}
	return &chat.Chat{
		LLM:       model,
		Embedder:  model,
		Files:     fs,
		Ops:       dispatcher,
		Assembler: assemble.New(fs, env.log(), limits),
		Logger:    env.log(),
		Options: chat.Options{
			Model:           modelName,
			MaxToolRounds:   cfg.MaxToolRounds,
			FileLimit:       cfg.FileLengthLimit,
			MaxPromptTokens: cfg.MaxPromptTokens,
			AgeKeepRecent:   cfg.AgeKeepRecent,
			AgeMaxChars:     cfg.AgeMaxChars,
		},
		StorePath: storePath,
	}, nil
}

// chatLoop reads one line per turn until end of input or /exit.
func chatLoop(c *cli.Context, env *appEnv, ch *chat.Chat, sc *session.Context, emb session.Embedder) error {
	interactive := env.isInteractive()
	if interactive {
		fmt.Fprintln(env.errOut(), color.HiBlackString(chatHelp))
	}

	scanner := bufio.NewScanner(env.in())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if interactive {
			fmt.Fprint(env.errOut(), color.CyanString("> "))
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch {
		case line == "":
			continue
		case cmd == "/exit" || cmd == "/quit":
			return nil
		case cmd == "/help":
			fmt.Fprintln(env.errOut(), chatHelp)
			continue
		case cmd == "/task":
			if arg == "" {
				fmt.Fprintln(env.errOut(), "usage: /task <text>")
				continue
			}
			if err := assemble.SetTask(c.Context, sc, emb, arg); err != nil {
				fmt.Fprintln(env.errOut(), color.RedString(llm.Describe(err)))
			}
			continue
		case cmd == "/project":
			sc.Project = arg
			continue
		case cmd == "/reset":
			fresh := session.New(sc.WorkingFolder)
			fresh.Project = sc.Project
			*sc = *fresh
			continue
		}

		answer, err := ch.Turn(c.Context, sc, line)
		if err != nil {
			if c.Context.Err() != nil {
				return c.Context.Err()
			}
			fmt.Fprintln(env.errOut(), color.RedString("error: %s", llm.Describe(err)))
			env.log().Debug("turn failed", "error", err)
			continue
		}
		fmt.Fprintln(env.out(), answer)
	}
}
