package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/stupside/fpid/internal/app"
)

// probesCommand returns the "probes" CLI subcommand.
func probesCommand() *cli.Command {
	var source string

	return &cli.Command{
		Name:  "probes",
		Usage: "List the probes of a source in run order",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "source",
				Usage:       "Probe set to list (browser or host)",
				Value:       sourceBrowser,
				Destination: &source,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			names, err := probeNames(cfg, source)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}
