package app

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging installs the default logger: text on stderr, plus JSON to a
// rotating file when one is configured. The returned closer flushes the file.
func SetupLogging(cfg LogConfig, debug bool) io.Closer {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		handler = slog.NewMultiHandler(handler, slog.NewJSONHandler(rotator, opts))
		closer = rotator
	}

	slog.SetDefault(slog.New(handler))
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
