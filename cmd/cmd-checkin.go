package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/fpid/internal/app"
	"github.com/stupside/fpid/internal/engine"
	"github.com/stupside/fpid/internal/telemetry"
)

// checkinCommand returns the "checkin" CLI subcommand.
func checkinCommand() *cli.Command {
	return &cli.Command{
		Name:  "checkin",
		Usage: "Generate a browser fingerprint and report it to the telemetry service",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			return checkin(ctx, cfg)
		},
	}
}

func checkin(ctx context.Context, cfg *app.Config) error {
	registry, session, err := openSource(ctx, cfg, sourceBrowser, nil)
	if err != nil {
		return err
	}
	defer session.Close()

	report := engine.New(registry, cfg.Engine).Generate(ctx)

	ua, uad, err := session.Agent(ctx)
	if err != nil {
		return fmt.Errorf("reading user agent: %w", err)
	}

	reporter := telemetry.NewReporter(
		telemetry.NewClient(cfg.Telemetry.BaseURL, cfg.Telemetry.Timeout),
		telemetry.NewIdentityStore(cfg.Telemetry.IdentityPath),
		cfg.Telemetry.ClientVersion,
		cfg.Telemetry.FPVersion,
	)
	sent, err := reporter.Report(ctx, report.FinalIdentifier(), ua, uad)
	if err != nil {
		return fmt.Errorf("reporting fingerprint: %w", err)
	}

	slog.InfoContext(ctx, "check-in complete", "fingerprint", report.FinalIdentifier(), "sent", sent)
	return nil
}
