// Package browser runs a headless Chrome that probes are evaluated in.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/stupside/fpid/internal/app"
)

// ErrClosed is returned by evaluations on a closed session.
var ErrClosed = errors.New("browser session closed")

// Session owns the chromedp lifecycle for one browser instance.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// Open launches Chrome, applies emulation overrides and navigates to the
// probe page. The caller must Close the session.
func Open(ctx context.Context, cfg app.BrowserConfig) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts(cfg)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	actions := []chromedp.Action{runtime.Enable()}
	if cfg.Emulation.Enabled() {
		actions = append(actions, applyEmulation(cfg.Emulation))
	}
	if cfg.SimulateNoise {
		slog.WarnContext(ctx, "countermeasure simulation enabled, canvas and audio probes will read as blocked")
		actions = append(actions, injectNoise())
	}
	actions = append(actions, chromedp.Navigate(cfg.PageURL))

	// The first Run allocates the browser and binds it to taskCtx, so it must
	// not run on a child context that gets cancelled. Bound it from outside.
	navDone := make(chan error, 1)
	go func() {
		navDone <- chromedp.Run(taskCtx, actions...)
	}()

	timer := time.NewTimer(cfg.Timeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-navDone:
	case <-timer.C:
		err = fmt.Errorf("browser startup timed out after %s", cfg.Timeout)
	case <-ctx.Done():
		err = context.Cause(ctx)
	}
	if err != nil {
		taskCancel()
		allocCancel()
		return nil, fmt.Errorf("opening %s: %w", cfg.PageURL, err)
	}

	slog.DebugContext(ctx, "browser session ready", "page", cfg.PageURL, "headless", cfg.Headless)

	return &Session{ctx: taskCtx, cancel: taskCancel, allocCancel: allocCancel}, nil
}

// Eval evaluates a JavaScript expression in the probe page, awaiting it if
// it yields a promise, and returns the JSON encoding of its value.
// Cancelling ctx abandons the evaluation but keeps the page alive.
func (s *Session) Eval(ctx context.Context, expr string) ([]byte, error) {
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var raw []byte
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &raw, awaitPromise)); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("evaluating probe: %w", context.Cause(ctx))
		}
		return nil, fmt.Errorf("evaluating probe: %w", err)
	}
	return raw, nil
}

// Agent returns navigator.userAgent and the JSON text of
// navigator.userAgentData as the page sees them.
func (s *Session) Agent(ctx context.Context) (ua, uad string, err error) {
	var agent struct {
		UA  string `json:"ua"`
		UAD string `json:"uad"`
	}
	raw, err := s.Eval(ctx, `({ua: navigator.userAgent, uad: JSON.stringify(navigator.userAgentData) ?? ""})`)
	if err != nil {
		return "", "", err
	}
	if err := json.Unmarshal(raw, &agent); err != nil {
		return "", "", fmt.Errorf("decoding user agent: %w", err)
	}
	return agent.UA, agent.UAD, nil
}

// Close shuts the tab and the browser process down.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// allocatorOpts returns chromedp exec-allocator options for a probe browser.
// Background throttling is disabled so timers inside probes fire on time.
func allocatorOpts(cfg app.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("mute-audio", true),

		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if cfg.Emulation.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Emulation.UserAgent))
	}
	return opts
}
