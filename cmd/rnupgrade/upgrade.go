package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/rnupgrade/internal/diff"
	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/ops"
	"github.com/hpungsan/rnupgrade/internal/run"
	"github.com/hpungsan/rnupgrade/internal/upgrade"
	"github.com/hpungsan/rnupgrade/internal/workspace"
)

// upgradeOutput is what the upgrade command prints when it finishes.
type upgradeOutput struct {
	RunID            string              `json:"run_id"`
	FromVersion      string              `json:"from_version"`
	ToVersion        string              `json:"to_version"`
	Counts           map[diff.Change]int `json:"counts"`
	Exited           bool                `json:"exited"`
	PromptTokens     int                 `json:"prompt_tokens"`
	CompletionTokens int                 `json:"completion_tokens"`
	Cost             string              `json:"cost"`
}

// upgradeCmd creates the upgrade command.
func upgradeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "upgrade",
		Usage: "Apply the upstream template diff to the project, one file at a time",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Required: true, Usage: "Current React Native version"},
			&cli.StringFlag{Name: "to", Required: true, Usage: "Target React Native version"},
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "Chat model (default from config)"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Accept every change without asking"},
			&cli.StringSliceFlag{Name: "ignore", Usage: "Extra glob of diff paths to leave alone (repeatable)"},
			&cli.BoolFlag{Name: "no-cache", Usage: "Do not read or write the response cache"},
		},
		Action: func(c *cli.Context) error {
			from, to := c.String("from"), c.String("to")
			for _, v := range []string{from, to} {
				if !run.ValidVersion(v) {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid version %q (want e.g. 0.71.0)", v)))
				}
			}
			project, err := projectDir(c)
			if err != nil {
				return outputError(err)
			}
			started := time.Now()

			text, err := env.diffSource().Fetch(c.Context, from, to)
			if err != nil {
				return outputError(err)
			}
			records := diff.Parse(text)
			if len(records) == 0 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("the %s..%s diff lists no files", from, to)))
			}

			model, err := env.model()
			if err != nil {
				return outputError(err)
			}

			fs := workspace.NewDir(project)
			fileOps := &upgrade.FileOps{FS: fs, Root: project, ListDepth: env.cfg.ListMaxDepth, ListIgnore: env.cfg.ListIgnore}
			dispatcher, err := fileOps.Dispatcher(upgrade.MutatingOps...)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			var cache *upgrade.Cache
			if !c.Bool("no-cache") {
				cache, err = upgrade.LoadCache(cachePath(env, project, from, to))
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
			}

			interactive := !c.Bool("yes") && env.isInteractive()
			var prompter upgrade.Prompter = &upgrade.AutoPrompter{Out: env.errOut()}
			if interactive {
				prompter = upgrade.NewTerminalPrompter(env.in(), env.errOut())
			}

			modelName := c.String("model")
			if modelName == "" {
				modelName = env.cfg.Model
			}

			u := &upgrade.Upgrader{
				LLM:         model,
				Model:       modelName,
				Files:       fs,
				Ops:         dispatcher,
				Cache:       cache,
				Prompter:    prompter,
				Logger:      env.log(),
				FromVersion: from,
				ToVersion:   to,
			}

			ignore := append(append([]string{}, env.cfg.IgnorePatterns...), c.StringSlice("ignore")...)
			env.log().Info("upgrade started", "project", project, "from", from, "to", to, "files", len(records), "interactive", interactive)

			sum, err := u.Run(c.Context, records, ignore)
			if err != nil {
				return outputError(err)
			}

			recorded, err := ops.RecordRun(c.Context, env.db, ops.RecordInput{
				Project:     project,
				FromVersion: from,
				ToVersion:   to,
				Model:       modelName,
				Interactive: interactive,
				Summary:     sum,
				StartedAt:   started,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(env.out(), upgradeOutput{
				RunID:            recorded.ID,
				FromVersion:      from,
				ToVersion:        to,
				Counts:           sum.Counts,
				Exited:           sum.Exited,
				PromptTokens:     sum.Usage.PromptTokens,
				CompletionTokens: sum.Usage.CompletionTokens,
				Cost:             sum.Cost,
			})
		},
	}
}

// diffCmd creates the diff command.
func diffCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "List the files the upgrade would touch",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Required: true, Usage: "Current React Native version"},
			&cli.StringFlag{Name: "to", Required: true, Usage: "Target React Native version"},
			&cli.StringSliceFlag{Name: "ignore", Usage: "Extra glob of diff paths to leave alone (repeatable)"},
			&cli.BoolFlag{Name: "patch", Aliases: []string{"p"}, Usage: "Include each file's diff text"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.DiffFiles(c.Context, env.diffSource(), ops.DiffFilesInput{
				FromVersion: c.String("from"),
				ToVersion:   c.String("to"),
				Ignore:      append(append([]string{}, env.cfg.IgnorePatterns...), c.StringSlice("ignore")...),
				IncludeDiff: c.Bool("patch"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(env.out(), output)
		},
	}
}
