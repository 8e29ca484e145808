package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/stupside/fpid/internal/app"
	"github.com/stupside/fpid/internal/engine"
)

// generateCommand returns the "generate" CLI subcommand.
func generateCommand() *cli.Command {
	var source string
	var names []string
	var asJSON bool
	var path string

	return &cli.Command{
		Name:  "generate",
		Usage: "Run the probes and print the fingerprint report",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "source",
				Usage:       "Probe set to run (browser or host)",
				Value:       sourceBrowser,
				Destination: &source,
			},
			&cli.StringSliceFlag{
				Name:        "probe",
				Aliases:     []string{"p"},
				Usage:       "Run only the named probe (repeatable)",
				Destination: &names,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "Print the report as JSON",
				Destination: &asJSON,
			},
			&cli.StringFlag{
				Name:        "get",
				Usage:       "Print a single value from the report, e.g. canvas.digest",
				Destination: &path,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			registry, session, err := openSource(ctx, cfg, source, names)
			if err != nil {
				return err
			}
			if session != nil {
				defer session.Close()
			}

			report := engine.New(registry, cfg.Engine).Generate(ctx)

			switch {
			case path != "":
				v, err := report.Lookup(path)
				if err != nil {
					return err
				}
				if !v.Exists() {
					return cli.Exit(fmt.Sprintf("no value at %q", path), 1)
				}
				fmt.Println(v.String())
			case asJSON:
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding report: %w", err)
				}
				fmt.Println(string(data))
			default:
				printReport(report)
			}
			return nil
		},
	}
}

func printReport(r *engine.Report) {
	for _, e := range r.Entries() {
		fmt.Printf("%-14s %-13s %s\n", e.Name, e.Status, e.Digest)
	}
	fmt.Printf("%-14s %-13s %s\n", "final", r.Policy(), r.FinalIdentifier())
}
