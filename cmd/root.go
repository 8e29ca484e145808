package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/fpid/internal/app"
	"github.com/stupside/fpid/internal/version"
)

// Root returns the root CLI command.
func Root() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "fpid",
		Usage:   "Derive a stable fingerprint from browser and host signals",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to configuration file",
				Value:       "config.yaml",
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := app.Load(configPath)
			if err != nil {
				return ctx, err
			}
			cmd.Metadata["config"] = cfg
			cmd.Metadata["log"] = app.SetupLogging(cfg.Log, cmd.Bool("debug"))
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if closer, ok := cmd.Metadata["log"].(io.Closer); ok {
				return closer.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			generateCommand(),
			probesCommand(),
			checkinCommand(),
			watchCommand(),
			{
				Name:  "info",
				Usage: "Print build information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					slog.Info("build",
						"version", version.Version,
						"commit", version.Commit,
						"build_time", version.BuildTime,
					)
					return nil
				},
			},
		},
		Metadata: map[string]any{},
	}
}
