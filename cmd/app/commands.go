package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quicknote/internal"
	"github.com/starford/quicknote/internal/export"
	"github.com/starford/quicknote/internal/mcpserver"
	"github.com/starford/quicknote/internal/noteservice"
	"github.com/starford/quicknote/internal/oplog"
	"github.com/starford/quicknote/internal/recyclebin"
	"github.com/starford/quicknote/internal/tui"
	"github.com/starford/quicknote/internal/watch"
)

// session opens the configured session for a one-shot command and closes it
// when fn returns. Diagnostics go to stderr so stdout stays clean for
// results.
func session(ctx context.Context, cmd *cli.Command, chooser export.Chooser, fn func(ctx context.Context, s *internal.Session) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

	s, err := internal.OpenSession(cfg, logger, chooser)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("Session close error", slog.String("error", err.Error()))
		}
	}()

	return fn(ctx, s)
}

func nameArg(cmd *cli.Command) (string, error) {
	name := cmd.Args().First()
	if name == "" {
		return "", fmt.Errorf("%s: note name is required", cmd.Name)
	}
	return name, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List notes",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print full note details as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return session(ctx, cmd, nil, func(ctx context.Context, s *internal.Session) error {
				notes, err := s.Service.ListNotes(ctx)
				if err != nil {
					return err
				}
				if cmd.Bool("json") {
					return printJSON(os.Stdout, notes)
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				for _, n := range notes {
					fmt.Fprintf(tw, "%s\t%s\n", n.Name, n.Title)
				}
				return tw.Flush()
			})
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a note's content",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, err := nameArg(cmd)
			if err != nil {
				return err
			}
			return session(ctx, cmd, nil, func(ctx context.Context, s *internal.Session) error {
				n, err := s.Service.GetNote(ctx, name)
				if err != nil {
					return err
				}
				_, err = io.WriteString(os.Stdout, n.Content)
				return err
			})
		},
	}
}

// contentFlag reads --content, or stdin when the flag is absent.
func contentFlag(cmd *cli.Command) (string, error) {
	if cmd.IsSet("content") {
		return cmd.String("content"), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func saveCommand() *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Create or overwrite a note (content from --content or stdin)",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "content", Usage: "Note content"},
			&cli.StringFlag{Name: "if-match", Usage: "Only save when the current checksum matches"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, err := nameArg(cmd)
			if err != nil {
				return err
			}
			content, err := contentFlag(cmd)
			if err != nil {
				return err
			}
			return session(ctx, cmd, nil, func(ctx context.Context, s *internal.Session) error {
				n, err := s.Service.SaveNote(ctx, name, content, cmd.String("if-match"))
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "%s\t%s\n", n.Name, n.Checksum)
				return nil
			})
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create a note; the name is generated when omitted",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "content", Usage: "Initial content"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return session(ctx, cmd, nil, func(ctx context.Context, s *internal.Session) error {
				n, err := s.Service.NewNote(ctx, cmd.Args().First(), cmd.String("content"))
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, n.Name)
				return nil
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Move a note to the recycle bin",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, err := nameArg(cmd)
			if err != nil {
				return err
			}
			return session(ctx, cmd, nil, func(ctx context.Context, s *internal.Session) error {
				ok, err := s.Service.DeleteNote(ctx, name)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("delete: note %q not found", name)
				}
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Copy a note to a path outside the store; prompts when no destination is given",
		ArgsUsage: "<name> [destination]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, err := nameArg(cmd)
			if err != nil {
				return err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			chooser := export.PromptChooser{In: os.Stdin, Out: os.Stderr, Dir: cwd}
			return session(ctx, cmd, chooser, func(ctx context.Context, s *internal.Session) error {
				res, err := s.Service.ExportNote(ctx, name, cmd.Args().Get(1))
				if err != nil {
					return err
				}
				if res.Canceled {
					fmt.Fprintln(os.Stderr, "export canceled")
					return nil
				}
				fmt.Fprintln(os.Stdout, res.Path)
				return nil
			})
		},
	}
}

func recycleCommand() *cli.Command {
	return &cli.Command{
		Name:  "recycle",
		Usage: "List the recycle bin",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return session(ctx, cmd, nil, func(ctx context.Context, s *internal.Session) error {
				entries, err := s.Service.ListRecycle(ctx)
				if err != nil {
					return err
				}
				retention := s.Bin.Retention()
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%d\t%s\texpires %s\n", e.Name, e.Size,
						e.ModTime.Format(oplog.TimeLayout), e.ModTime.Add(retention).Format(oplog.TimeLayout))
				}
				return tw.Flush()
			})
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Purge recycle bin entries older than the retention window",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return session(ctx, cmd, nil, func(ctx context.Context, s *internal.Session) error {
				rep, err := s.Service.Sweep(ctx)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, rep)
			})
		},
	}
}

func logCommand() *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Print the most recent operation log entries",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Number of entries; 0 for all"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return session(ctx, cmd, nil, func(ctx context.Context, s *internal.Session) error {
				entries, err := s.Service.ReadLog(ctx, int(cmd.Int("limit")))
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprint(os.Stdout, oplog.FormatLine(e))
				}
				return nil
			})
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve note tools over MCP on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return session(ctx, cmd, nil, func(ctx context.Context, s *internal.Session) error {
				if _, err := s.Service.Sweep(ctx); err != nil {
					slog.Warn("startup sweep failed", slog.String("error", err.Error()))
				}
				return mcpserver.New(s.Service, version).ServeStdio()
			})
		},
	}
}

func tuiCommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Open the terminal editor",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "export-dir", Usage: "Default export directory"},
			&cli.StringFlag{Name: "style", Value: "dark", Usage: "Markdown preview style"},
		},
		Action: runTUI,
	}
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// The terminal belongs to the UI; failures reach it as events instead.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bridge := tui.NewBridge()
	s, err := internal.OpenSession(cfg, logger, nil,
		noteservice.WithNotifier(bridge),
		noteservice.WithAutosaveHook(bridge.AutosaveHook),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	exportDir := cmd.String("export-dir")
	if exportDir == "" {
		if exportDir, err = os.Getwd(); err != nil {
			return err
		}
	}

	svc := s.Service
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := watch.Watch(gCtx, s.Layout.Active, svc.Store().Patterns().Match, watch.DefaultSettle, logger,
			func(kind watch.Kind, name string) {
				svc.ExternalChange(name, kind == watch.KindRemoved)
			})
		if err != nil {
			logger.Error("Notes watcher unavailable", slog.String("error", err.Error()))
		}
		return nil
	})
	g.Go(func() error {
		return recyclebin.NewSweeper(s.Bin, logger,
			recyclebin.WithInterval(cfg.Recycle.SweepInterval.Std()),
			recyclebin.WithNotify(svc.ReportPurge),
		).Run(gCtx)
	})
	g.Go(func() error {
		err := tui.Run(gCtx, svc, bridge,
			tui.WithExportDir(exportDir),
			tui.WithMarkdownStyle(cmd.String("style")),
		)
		if err != nil {
			return err
		}
		return errQuit
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

// errQuit stops the watcher and sweeper once the user leaves the UI.
var errQuit = errors.New("quit")
