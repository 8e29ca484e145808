package cmd

import (
	"context"
	"fmt"

	"github.com/stupside/fpid/internal/app"
	"github.com/stupside/fpid/internal/browser"
	"github.com/stupside/fpid/internal/probe"
	"github.com/stupside/fpid/internal/probe/hostprobe"
	"github.com/stupside/fpid/internal/probe/webprobe"
)

const (
	sourceBrowser = "browser"
	sourceHost    = "host"
)

// probeNames lists a source's probes without opening it.
func probeNames(cfg *app.Config, source string) ([]string, error) {
	switch source {
	case sourceBrowser:
		return webprobe.Names(), nil
	case sourceHost:
		names := []string{}
		for _, d := range hostprobe.Probes(cfg.Host, hostprobe.Source{}) {
			names = append(names, d.Name)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("unknown source %q, want %s or %s", source, sourceBrowser, sourceHost)
	}
}

// openSource builds the registry for source, restricted to names when any
// are given. The returned session is nil for the host source.
func openSource(ctx context.Context, cfg *app.Config, source string, names []string) (*probe.Registry, *browser.Session, error) {
	var (
		defs    []probe.Definition
		session *browser.Session
	)

	switch source {
	case sourceBrowser:
		s, err := browser.Open(ctx, cfg.Browser)
		if err != nil {
			return nil, nil, err
		}
		session = s
		defs = webprobe.Probes(s)
	case sourceHost:
		defs = hostprobe.Probes(cfg.Host, hostprobe.System())
	default:
		return nil, nil, fmt.Errorf("unknown source %q, want %s or %s", source, sourceBrowser, sourceHost)
	}

	registry, err := probe.NewRegistry(defs...)
	if err == nil {
		registry, err = registry.Filter(names...)
	}
	if err != nil {
		if session != nil {
			session.Close()
		}
		return nil, nil, err
	}
	return registry, session, nil
}
