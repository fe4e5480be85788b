package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quicknote/internal"
	pkgconfig "github.com/starford/quicknote/pkg/config"
)

var version = "dev"

// loadConfig reads the config file named by --config. The default file may
// be absent, in which case built-in defaults apply; an explicitly named file
// must exist. --root overrides storage.root.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if root := cmd.String("root"); root != "" {
		cfg.Storage.Root = root
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "quicknote",
		Usage:   "Local note keeping with a recycle bin, an operation log and export",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Usage:   "Storage root (overrides storage.root)",
				Sources: cli.EnvVars("QUICKNOTE_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live events",
				Action: run,
			},
			listCommand(),
			showCommand(),
			saveCommand(),
			newCommand(),
			deleteCommand(),
			exportCommand(),
			recycleCommand(),
			sweepCommand(),
			logCommand(),
			mcpCommand(),
			tuiCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
