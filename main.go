package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/stupside/fpid/cmd"
	"github.com/stupside/fpid/internal/app"
)

func main() {
	os.Exit(run(os.Args))
}

// run logs to stderr until the root command has loaded the config, which may
// add a log file.
func run(args []string) int {
	app.SetupLogging(app.LogConfig{}, slices.Contains(args, "--debug"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Root().Run(ctx, args); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			slog.InfoContext(ctx, "interrupted", "cause", cause)
			return 0
		}
		slog.Error("fpid failed", "error", err)
		return 1
	}
	return 0
}
