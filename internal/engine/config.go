// Package engine turns a registry of probes into a fingerprint report.
//
// Each probe is run through a consistency check that repeats it and flags
// unstable output as blocked, then normalized into a result carrying a
// digest. The final identifier is the digest of the sorted concatenation of
// the per-probe digests, so it does not depend on execution order.
package engine

import (
	"fmt"
	"time"
)

// FormatVersion identifies the probe set and combination rules that produce
// an identifier. Servers reject check-ins with an unknown version.
const FormatVersion = 1

// Policy selects which per-probe digests enter the final identifier.
type Policy string

const (
	// IncludeSentinels combines every result's digest, "N/A" placeholders
	// included. A probe that is blocked in a stable way then still shapes
	// the identifier. This is what format version 1 clients do.
	IncludeSentinels Policy = "include-sentinels"
	// SuccessOnly combines only the digests of successful probes.
	SuccessOnly Policy = "success-only"
)

// Validate reports whether p is a known policy.
func (p Policy) Validate() error {
	switch p {
	case IncludeSentinels, SuccessOnly:
		return nil
	default:
		return fmt.Errorf("unknown combination policy %q", p)
	}
}

const (
	defaultAttempts     = 3
	defaultDelay        = 20 * time.Millisecond
	defaultProbeTimeout = 5 * time.Second
)

// Config holds engine tuning.
type Config struct {
	Attempts     int           `koanf:"attempts" validate:"gte=0"`
	Delay        time.Duration `koanf:"delay" validate:"gte=0"`
	ProbeTimeout time.Duration `koanf:"probe_timeout" validate:"gte=0"`
	Concurrency  int           `koanf:"concurrency" validate:"gte=0"`
	Combine      Policy        `koanf:"combine" validate:"omitempty,oneof=include-sentinels success-only"`
}

// DefaultConfig returns the configuration matching the browser client.
func DefaultConfig() Config {
	return Config{
		Attempts:     defaultAttempts,
		Delay:        defaultDelay,
		ProbeTimeout: defaultProbeTimeout,
		Concurrency:  1,
		Combine:      IncludeSentinels,
	}
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Attempts < 1 {
		c.Attempts = defaultAttempts
	}
	if c.Delay <= 0 {
		c.Delay = defaultDelay
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaultProbeTimeout
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Combine == "" {
		c.Combine = IncludeSentinels
	}
	return c
}
