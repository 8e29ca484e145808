package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"

	"github.com/stupside/fpid/internal/app"
)

// watchCommand returns the "watch" CLI subcommand.
func watchCommand() *cli.Command {
	var schedule string

	return &cli.Command{
		Name:  "watch",
		Usage: "Check in now and then on a schedule until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "schedule",
				Usage:       "Cron spec or descriptor, overrides watch.schedule",
				Destination: &schedule,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			if schedule == "" {
				schedule = cfg.Watch.Schedule
			}

			job := func() {
				if err := checkin(ctx, cfg); err != nil && ctx.Err() == nil {
					slog.ErrorContext(ctx, "scheduled check-in failed", "error", err)
				}
			}

			c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
			if _, err := c.AddFunc(schedule, job); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}

			slog.InfoContext(ctx, "watching", "schedule", schedule)
			job()

			c.Start()
			<-ctx.Done()
			<-c.Stop().Done()
			return context.Cause(ctx)
		},
	}
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
