package engine

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stupside/fpid/internal/digest"
	"github.com/stupside/fpid/internal/probe"
)

// Engine runs a fixed probe registry. It holds no state between runs.
type Engine struct {
	cfg      Config
	registry *probe.Registry
	checker  Checker
	digester *digest.Digester
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDigester replaces the SHA-256 digester.
func WithDigester(d *digest.Digester) Option {
	return func(e *Engine) { e.digester = d }
}

// New creates an Engine over registry. Zero config fields take defaults.
func New(registry *probe.Registry, cfg Config, opts ...Option) *Engine {
	if registry == nil {
		registry = &probe.Registry{}
	}
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:      cfg,
		registry: registry,
		checker:  Checker{Attempts: cfg.Attempts, Delay: cfg.Delay},
		digester: digest.Default,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Generate runs every registered probe and combines their digests.
// It never fails: probe failures are recorded in their results and a broken
// hash primitive surfaces as digest.HashError in the identifier.
func (e *Engine) Generate(ctx context.Context) *Report {
	defs := e.registry.Definitions()
	results := make([]Result, len(defs))

	start := time.Now()

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	for i, d := range defs {
		g.Go(func() error {
			res, cause := e.run(ctx, d.Func)
			logResult(ctx, d.Name, res, cause)
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]Entry, len(defs))
	for i, d := range defs {
		entries[i] = Entry{Name: d.Name, Result: results[i]}
	}

	report := &Report{
		version:    FormatVersion,
		policy:     e.cfg.Combine,
		entries:    entries,
		identifier: Combine(results, e.cfg.Combine, e.digester),
	}

	slog.InfoContext(ctx, "fingerprint generated",
		"identifier", report.identifier,
		"probes", len(entries),
		"genuine", report.Genuine(),
		"policy", e.cfg.Combine,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return report
}

// Combine computes the final identifier from per-probe results: the digest
// of the lexicographically sorted, separator-free concatenation of the
// digests selected by policy. Result order does not matter.
func Combine(results []Result, policy Policy, d *digest.Digester) string {
	digests := make([]string, 0, len(results))
	for _, r := range results {
		if policy == SuccessOnly && r.Status != probe.Success {
			continue
		}
		digests = append(digests, r.Digest)
	}
	slices.Sort(digests)

	if d == nil {
		d = digest.Default
	}
	return d.Sum(strings.Join(digests, ""))
}

func logResult(ctx context.Context, name string, res Result, cause error) {
	switch res.Status {
	case probe.Success:
		slog.DebugContext(ctx, "probe succeeded", "probe", name, "digest", res.Digest)
	case probe.NotSupported:
		slog.DebugContext(ctx, "probe not supported", "probe", name)
	case probe.Blocked:
		slog.WarnContext(ctx, "probe blocked", "probe", name)
	default:
		slog.WarnContext(ctx, "probe failed", "probe", name, "raw", res.Raw, "error", cause)
	}
}
