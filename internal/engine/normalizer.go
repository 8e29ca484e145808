package engine

import (
	"context"
	"fmt"

	"github.com/stupside/fpid/internal/probe"
)

// NotAvailable is the digest of every result that is not a success.
const NotAvailable = "N/A"

// Result is the normalized outcome of one probe.
//
// Digest is a hex digest exactly when Status is Success. Otherwise it is
// NotAvailable and Raw holds the status name, or a diagnostic message when
// normalization itself failed.
type Result struct {
	Raw    any          `json:"raw"`
	Digest string       `json:"digest"`
	Status probe.Status `json:"status"`
}

// RunTest checks fn for consistency and normalizes the outcome.
func (e *Engine) RunTest(ctx context.Context, fn probe.Func) Result {
	res, _ := e.run(ctx, fn)
	return res
}

// run is RunTest that also returns the cause behind an Error result.
// The whole run, every attempt included, is bounded by the probe timeout;
// a probe that ignores cancellation is abandoned.
func (e *Engine) run(ctx context.Context, fn probe.Func) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	done := make(chan probe.Outcome, 1)
	go func() {
		done <- e.checker.Check(ctx, fn)
	}()

	select {
	case out := <-done:
		return e.normalize(out)
	case <-ctx.Done():
		err := fmt.Errorf("probe timed out: %w", context.Cause(ctx))
		return failed(err), err
	}
}

func (e *Engine) normalize(out probe.Outcome) (res Result, cause error) {
	defer func() {
		if r := recover(); r != nil {
			cause = fmt.Errorf("normalizing result: %v", r)
			res = failed(cause)
		}
	}()

	if out.Status.Sentinel() {
		return Result{Raw: string(out.Status), Digest: NotAvailable, Status: out.Status}, out.Err
	}
	if out.Status != probe.Success {
		err := fmt.Errorf("unknown probe status %q", out.Status)
		return failed(err), err
	}

	canonical, err := probe.Canonical(out.Value)
	if err != nil {
		return failed(err), err
	}

	return Result{Raw: out.Value, Digest: e.digester.Sum(canonical), Status: probe.Success}, nil
}

// failed is the result of a failure inside the engine rather than the probe.
func failed(err error) Result {
	return Result{Raw: err.Error(), Digest: NotAvailable, Status: probe.Error}
}
