package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/rnupgrade/internal/config"
	"github.com/hpungsan/rnupgrade/internal/diff"
	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/llm"
	"github.com/hpungsan/rnupgrade/internal/mcp"
	"github.com/hpungsan/rnupgrade/internal/ops"
	"github.com/hpungsan/rnupgrade/internal/run"
	"github.com/hpungsan/rnupgrade/internal/upgrade"
	"github.com/hpungsan/rnupgrade/internal/web"
)

// appEnv holds what commands share. Zero-valued streams default to the
// process's standard streams.
type appEnv struct {
	db      *sql.DB
	cfg     *config.Config
	baseDir string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// httpClient is used for diff downloads and model calls; nil uses defaults.
	httpClient *http.Client
	// interactive overrides terminal detection when set.
	interactive *bool

	logger *slog.Logger
}

func (e *appEnv) in() io.Reader {
	if e.stdin == nil {
		return os.Stdin
	}
	return e.stdin
}

func (e *appEnv) out() io.Writer {
	if e.stdout == nil {
		return os.Stdout
	}
	return e.stdout
}

func (e *appEnv) errOut() io.Writer {
	if e.stderr == nil {
		return os.Stderr
	}
	return e.stderr
}

func (e *appEnv) log() *slog.Logger {
	if e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

func (e *appEnv) isInteractive() bool {
	if e.interactive != nil {
		return *e.interactive
	}
	return upgrade.IsInteractive()
}

func (e *appEnv) dir(sub string) string {
	return filepath.Join(e.baseDir, sub)
}

// diffSource returns the diff fetcher caching into <base>/diffs.
func (e *appEnv) diffSource() *diff.Fetcher {
	f := diff.NewFetcher(e.cfg.DiffBaseURL, e.dir("diffs"))
	if e.httpClient != nil {
		f.Client = e.httpClient
	}
	return f
}

// model returns the provider client wrapped in the rate-limit retry policy.
func (e *appEnv) model() (*llm.Retrying, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, errors.NewInvalidRequest("OPENAI_API_KEY is not set")
	}
	client := llm.NewClient("", e.cfg.APIBaseURL, e.cfg.EmbeddingModel, e.httpClient)
	return &llm.Retrying{
		Client:   client,
		Attempts: e.cfg.MaxRetries,
		Delay:    time.Duration(e.cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "rnupgrade",
		Usage:   "Upgrade a React Native project with a language model, one file at a time",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Log debug output to stderr"},
			&cli.StringFlag{Name: "project", Aliases: []string{"C"}, Usage: "Project folder (default: current directory)"},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			if env.logger == nil {
				env.logger = slog.New(slog.NewTextHandler(env.errOut(), &slog.HandlerOptions{Level: level}))
			}
			return nil
		},
		Commands: []*cli.Command{
			upgradeCmd(env),
			diffCmd(env),
			chatCmd(env),
			historyCmd(env),
			showCmd(env),
			reportCmd(env),
			deleteCmd(env),
			purgeCmd(env),
			cacheCmd(env),
			mcpCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// historyCmd creates the history command.
func historyCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded upgrade runs, newest first",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "List runs of every project"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Skip results"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted runs"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				Limit:          c.Int("limit"),
				Offset:         c.Int("offset"),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if !c.Bool("all") {
				project, err := projectDir(c)
				if err != nil {
					return outputError(err)
				}
				input.Project = project
			}

			output, err := ops.ListRuns(c.Context, env.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(env.out(), output)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one run with its files (default: the project's latest)",
		ArgsUsage: "[run-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "include-deleted", Usage: "Allow showing a soft-deleted run"},
		},
		Action: func(c *cli.Context) error {
			sel, err := selector(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.FetchRun(c.Context, env.db, ops.FetchInput{
				Selector:       sel,
				IncludeDeleted: c.Bool("include-deleted"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(env.out(), output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Write a run report to the reports directory (default: the project's latest run)",
		ArgsUsage: "[run-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "md", Usage: "Report format: md|html"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "File name inside the reports directory"},
		},
		Action: func(c *cli.Context) error {
			sel, err := selector(c)
			if err != nil {
				return outputError(err)
			}
			input := ops.ExportInput{Selector: sel, Format: c.String("format")}
			if name := c.String("output"); name != "" {
				input.Path = filepath.Join(env.dir("reports"), name)
			}

			output, err := ops.ExportReport(c.Context, env.db, env.dir("reports"), input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(env.out(), output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a run (default: the project's latest)",
		ArgsUsage: "[run-id]",
		Action: func(c *cli.Context) error {
			sel, err := selector(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.DeleteRun(c.Context, env.db, ops.DeleteInput{Selector: sel})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(env.out(), output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete soft-deleted runs",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Purge every project, not just the current one"},
			&cli.StringFlag{Name: "older-than", Usage: "Only purge if deleted more than N days ago (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}

			if !c.Bool("all") {
				project, err := projectDir(c)
				if err != nil {
					return outputError(err)
				}
				input.Project = &project
			}
			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.PurgeRuns(c.Context, env.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(env.out(), output)
		},
	}
}

// cacheCmd creates the cache command group.
func cacheCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the per-upgrade response cache",
		Subcommands: []*cli.Command{
			{
				Name:      "rm",
				Usage:     "Drop cached model responses so the files are upgraded afresh",
				ArgsUsage: "<path>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true, Usage: "Current version"},
					&cli.StringFlag{Name: "to", Required: true, Usage: "Target version"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputError(errors.NewInvalidRequest("at least one path is required"))
					}
					project, err := projectDir(c)
					if err != nil {
						return outputError(err)
					}

					cache, err := upgrade.LoadCache(cachePath(env, project, c.String("from"), c.String("to")))
					if err != nil {
						return outputError(errors.NewInternal(err))
					}

					removed := make([]string, 0, c.NArg())
					for _, path := range c.Args().Slice() {
						ok, err := cache.Evict(path)
						if err != nil {
							return outputError(errors.NewInternal(err))
						}
						if ok {
							removed = append(removed, path)
						}
					}
					return outputJSON(env.out(), map[string]any{
						"removed":   removed,
						"remaining": cache.Len(),
					})
				},
			},
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve diffs and run history over MCP (stdio)",
		Action: func(c *cli.Context) error {
			if err := runMCP(env); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Browse recorded runs and reports in a local web page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8347, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(env.db, env.cfg, env.log(), Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(c.Context, srv, env.log()); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

func runMCP(env *appEnv) error {
	if unknown := mcp.ValidateDisabledTools(env.cfg.DisabledTools); len(unknown) > 0 {
		env.log().Warn("unknown tools in disabled_tools", "tools", strings.Join(unknown, ","))
	}
	return mcp.Run(env.db, env.cfg, env.diffSource(), env.dir("reports"), Version)
}

// Helper functions

// projectDir resolves --project, defaulting to the working directory.
func projectDir(c *cli.Context) (string, error) {
	dir := c.String("project")
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.NewInternal(err)
		}
		dir = wd
	}
	return run.NormalizeProject(dir), nil
}

// selector addresses a run by positional ID or as the project's latest.
func selector(c *cli.Context) (ops.Selector, error) {
	if c.NArg() > 0 {
		return ops.Selector{ID: c.Args().First()}, nil
	}
	project, err := projectDir(c)
	if err != nil {
		return ops.Selector{}, err
	}
	return ops.Selector{Project: project}, nil
}

// cachePath is the response cache of one project and version pair.
func cachePath(env *appEnv, project, from, to string) string {
	name := fmt.Sprintf("%s-%s-%s.json", ops.SanitizeForFilename(project), from, to)
	return filepath.Join(env.dir("cache"), name)
}

// sessionPath is the chat session file of one project.
func sessionPath(env *appEnv, project string) string {
	return filepath.Join(env.dir("sessions"), ops.SanitizeForFilename(project)+".json")
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if uErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", uErr.Code, uErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
