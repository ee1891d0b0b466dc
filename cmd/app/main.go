package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/mastermind/internal"
	"github.com/starford/mastermind/internal/compose"
	"github.com/starford/mastermind/internal/console"
	"github.com/starford/mastermind/internal/selection"
	pkgconfig "github.com/starford/mastermind/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// withJournal opens the journal for a one-shot command. Logs go to stderr
// so stdout carries only the command's output.
func withJournal(cmd *cli.Command, fn func(j *internal.Journal) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	j, err := internal.OpenJournal(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer j.Close()
	return fn(j)
}

// readInput reads the file named by the first argument, or stdin for "-".
func readInput(cmd *cli.Command) (string, error) {
	path := cmd.Args().First()
	if path == "" {
		return "", errors.New("a file argument is required (use - for stdin)")
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func resolveSelection(ctx context.Context, cmd *cli.Command, j *internal.Journal) (selection.Selection, error) {
	return j.Service.ResolveSelection(ctx,
		selection.SplitList(cmd.String("projects")),
		selection.SplitList(cmd.String("tags")),
		selection.SplitList(cmd.String("dates")),
	)
}

func inspect(ctx context.Context, cmd *cli.Command) error {
	text, err := readInput(cmd)
	if err != nil {
		return err
	}
	return withJournal(cmd, func(j *internal.Journal) error {
		res, err := j.Service.Analyze(ctx, text)
		if err != nil {
			return err
		}
		console.New().Analysis(res)
		if len(res.Errors) > 0 {
			return fmt.Errorf("%d structural errors", len(res.Errors))
		}
		return nil
	})
}

func composeView(ctx context.Context, cmd *cli.Command) error {
	return withJournal(cmd, func(j *internal.Journal) error {
		sel, err := resolveSelection(ctx, cmd, j)
		if err != nil {
			return err
		}
		text, err := j.Service.Compose(ctx, sel)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, text)
		return err
	})
}

func save(ctx context.Context, cmd *cli.Command) error {
	text, err := readInput(cmd)
	if err != nil {
		return err
	}
	return withJournal(cmd, func(j *internal.Journal) error {
		sel, err := resolveSelection(ctx, cmd, j)
		if err != nil {
			return err
		}
		var confirm compose.Confirmer = &console.TerminalConfirmer{In: os.Stdin, Out: os.Stdout}
		switch {
		case cmd.Bool("yes"):
			confirm = compose.AcceptAll{}
		case cmd.Bool("dry-run"):
			confirm = &compose.Preview{}
		}
		report, err := j.Service.Save(ctx, text, sel, confirm)
		if report != nil {
			console.New().Report(report)
		}
		return err
	})
}

func export(ctx context.Context, cmd *cli.Command) error {
	text, err := readInput(cmd)
	if err != nil {
		return err
	}
	return withJournal(cmd, func(j *internal.Journal) error {
		changed, err := j.Service.Export(ctx, text)
		for _, name := range changed {
			_, _ = fmt.Fprintf(os.Stdout, "exported %s\n", name)
		}
		return err
	})
}

func projects(_ context.Context, cmd *cli.Command) error {
	return withJournal(cmd, func(j *internal.Journal) error {
		metas, err := j.Store.List()
		if err != nil {
			return err
		}
		console.New().Projects(metas)
		return nil
	})
}

func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "projects", Aliases: []string{"p"}, Usage: "Comma separated projects (default all)"},
		&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma separated tags to show (default all)"},
		&cli.StringFlag{Name: "dates", Aliases: []string{"d"}, Usage: "Comma separated DD/MM/YYYY dates to focus on"},
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "mastermind",
		Usage:  "Multi-project journal with a filtered composite view that saves back to each project",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the journal watcher (default)",
				Action: run,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: runMCP,
			},
			{
				Name:      "inspect",
				Usage:     "Parse a journal text and list its sections, errors and warnings",
				ArgsUsage: "FILE",
				Action:    inspect,
			},
			{
				Name:   "compose",
				Usage:  "Print the composite view of the selected projects",
				Flags:  selectionFlags(),
				Action: composeView,
			},
			{
				Name:      "save",
				Usage:     "Fold an edited composite back into the project documents",
				ArgsUsage: "FILE",
				Flags: append(selectionFlags(),
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Accept every change without asking"},
					&cli.BoolFlag{Name: "dry-run", Usage: "Report what would change and write nothing"},
				),
				Action: save,
			},
			{
				Name:      "export",
				Usage:     "Append the dated sections of a text to their projects",
				ArgsUsage: "FILE",
				Action:    export,
			},
			{
				Name:   "projects",
				Usage:  "List project documents",
				Action: projects,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
