package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLoggingWritesRotatingFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "fpid.log")
	closer := SetupLogging(LogConfig{File: path, MaxSizeMB: 1}, true)

	slog.Debug("probe succeeded", "probe", "math")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"probe succeeded"`)
	require.Contains(t, string(data), `"probe":"math"`)
}

func TestSetupLoggingLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	closer := SetupLogging(LogConfig{}, false)
	require.NoError(t, closer.Close())
	require.False(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}

func TestSetupLoggingStderrOnlyDebug(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	closer := SetupLogging(LogConfig{}, true)
	require.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
	require.NoError(t, closer.Close())
}
