package browser

import (
	"context"
	_ "embed"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/stupside/fpid/internal/app"
)

// noiseJS perturbs canvas exports and audio buffers on every read.
//
//go:embed js/noise.js
var noiseJS string

// applyEmulation overrides the environment the probes observe.
func applyEmulation(cfg app.EmulationConfig) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if cfg.Timezone != "" {
			if err := emulation.SetTimezoneOverride(cfg.Timezone).Do(ctx); err != nil {
				return err
			}
		}
		if cfg.Locale != "" {
			if err := emulation.SetLocaleOverride().WithLocale(cfg.Locale).Do(ctx); err != nil {
				return err
			}
		}
		if cfg.UserAgent != "" {
			ua := emulation.SetUserAgentOverride(cfg.UserAgent)
			if cfg.Locale != "" {
				ua.AcceptLanguage = cfg.Locale
			}
			if err := ua.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// injectNoise installs the countermeasure simulation before any page
// script runs.
func injectNoise() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(noiseJS).Do(ctx)
		return err
	}
}
