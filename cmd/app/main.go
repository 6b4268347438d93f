package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	pkgconfig "github.com/starford/raido/pkg/config"
)

var version = "dev"

// loadConfig reads the config file over the defaults and applies CLI overrides.
// A missing file is fine: the defaults are used.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	read, err := pkgconfig.LoadIfExists(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !read {
		slog.Info("config file not found, using defaults", slog.String("path", configPath))
	}

	if cmd.Bool("dry-run") {
		cfg.Organizer.DryRun = true
	}
	if cmd.Bool("auto-confirm") {
		cfg.Organizer.AutoConfirm = true
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	mode := internal.ModePoll
	switch {
	case cmd.Bool("once") && cmd.Bool("watch"):
		return fmt.Errorf("--once and --watch are mutually exclusive")
	case cmd.Bool("once"):
		mode = internal.ModeOnce
	case cmd.Bool("watch"):
		mode = internal.ModeWatch
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithMode(mode),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "raido",
		Usage:   "Organize files in watched folders with names and places suggested by an LLM",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config.yaml",
				Value:       "config.yaml",
				Sources:     cli.EnvVars("RAIDO_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single pass and exit",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Run a pass whenever a monitored folder changes",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log suggestions without touching any file",
			},
			&cli.BoolFlag{
				Name:  "auto-confirm",
				Usage: "Apply suggestions without asking",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the organizer tools over MCP on stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
