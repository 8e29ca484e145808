package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/stupside/fpid/internal/engine"
)

// Config holds all application configuration.
type Config struct {
	Engine    engine.Config   `koanf:"engine" validate:"required"`
	Browser   BrowserConfig   `koanf:"browser" validate:"required"`
	Host      HostConfig      `koanf:"host"`
	Telemetry TelemetryConfig `koanf:"telemetry" validate:"required"`
	Watch     WatchConfig     `koanf:"watch" validate:"required"`
	Log       LogConfig       `koanf:"log"`
}

// BrowserConfig holds settings for the probe browser.
type BrowserConfig struct {
	ChromePath    string          `koanf:"chrome_path"`
	Headless      bool            `koanf:"headless"`
	NoSandbox     bool            `koanf:"no_sandbox"`
	Timeout       time.Duration   `koanf:"timeout" validate:"required"`
	PageURL       string          `koanf:"page_url" validate:"required"`
	WindowWidth   int             `koanf:"window_width" validate:"gt=0"`
	WindowHeight  int             `koanf:"window_height" validate:"gt=0"`
	Emulation     EmulationConfig `koanf:"emulation"`
	SimulateNoise bool            `koanf:"simulate_noise"`
}

// EmulationConfig overrides what the probes observe. Empty fields keep the
// browser's own values.
type EmulationConfig struct {
	Timezone  string `koanf:"timezone"`
	Locale    string `koanf:"locale"`
	UserAgent string `koanf:"user_agent"`
}

// Enabled reports whether any override is set.
func (e EmulationConfig) Enabled() bool {
	return e.Timezone != "" || e.Locale != "" || e.UserAgent != ""
}

// HostConfig holds settings for the host probe set.
type HostConfig struct {
	IncludeLoopback bool `koanf:"include_loopback"`
}

// TelemetryConfig holds the telemetry service settings.
type TelemetryConfig struct {
	BaseURL       string        `koanf:"base_url" validate:"required,url"`
	ClientVersion string        `koanf:"client_version" validate:"required"`
	FPVersion     int           `koanf:"fp_version" validate:"required,gt=0"`
	IdentityPath  string        `koanf:"identity_path" validate:"required"`
	Timeout       time.Duration `koanf:"timeout" validate:"required"`
}

// WatchConfig holds the periodic check-in schedule.
type WatchConfig struct {
	Schedule string `koanf:"schedule" validate:"required"`
}

// LogConfig holds the optional rotating log file.
type LogConfig struct {
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() Config {
	return Config{
		Engine: engine.DefaultConfig(),
		Browser: BrowserConfig{
			Headless:     true,
			Timeout:      30 * time.Second,
			PageURL:      "about:blank",
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Telemetry: TelemetryConfig{
			BaseURL:       "https://telemetry.ex.gosuda.org",
			ClientVersion: "20250807-V1ALPHA1",
			FPVersion:     engine.FormatVersion,
			IdentityPath:  ".fpid/identity.json",
			Timeout:       10 * time.Second,
		},
		Watch: WatchConfig{Schedule: "@every 1h"},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads and validates configuration from a YAML file on top of the
// defaults. A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("config file not found, using defaults", "path", path)
	} else {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
		if err := k.Unmarshal("", &cfg); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
