package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/stupside/fpid/internal/probe"
)

// Checker repeats a probe to tell genuine signals from randomized ones.
// Countermeasures that add per-call or per-tick noise show up as a
// mismatch between attempts.
type Checker struct {
	Attempts int
	Delay    time.Duration
}

// Check runs fn up to Attempts times, Delay apart. A first outcome of
// Blocked is returned without repeating. Any mismatch against the first
// outcome returns Blocked at once; agreement returns the first outcome.
// Panics, serialization failures and cancellation become Error.
func (c Checker) Check(ctx context.Context, fn probe.Func) (out probe.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = probe.Failf("probe panicked: %v", r)
		}
	}()

	first := fn(ctx)
	if first.Status == probe.Blocked {
		return probe.Block()
	}

	want, err := first.Key()
	if err != nil {
		return probe.Fail(err)
	}

	for i := 1; i < c.Attempts; i++ {
		if err := sleep(ctx, c.Delay); err != nil {
			return probe.Fail(fmt.Errorf("consistency check interrupted after %d attempts: %w", i, err))
		}

		got, err := fn(ctx).Key()
		if err != nil {
			return probe.Fail(err)
		}
		if got != want {
			return probe.Block()
		}
	}

	return first
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
