// Package probe defines environmental signal readers and their outcomes.
//
// A probe reads one signal and reports either a genuine value or one of the
// sentinel statuses. Values and sentinels are carried by distinct fields of
// [Outcome], so a probe whose genuine output happens to be the string
// "Blocked" is never mistaken for a blocked probe.
package probe

import (
	"context"
	"fmt"
)

// Status classifies the outcome of a probe.
type Status string

const (
	Success      Status = "Success"
	Blocked      Status = "Blocked"
	Error        Status = "Error"
	NotSupported Status = "NotSupported"
)

// Sentinel reports whether s is one of the non-success statuses.
func (s Status) Sentinel() bool {
	switch s {
	case Blocked, Error, NotSupported:
		return true
	default:
		return false
	}
}

// Outcome is the tagged result of a single probe invocation.
type Outcome struct {
	Status Status
	// Value holds the raw signal when Status is Success: a string, a
	// json.RawMessage, or any value encoding/json can serialize.
	Value any
	// Err explains an Error outcome. It never takes part in comparisons.
	Err error
}

// Value wraps a genuine probe value.
func Value(v any) Outcome {
	return Outcome{Status: Success, Value: v}
}

// Block reports that the signal is actively suppressed.
func Block() Outcome {
	return Outcome{Status: Blocked}
}

// Unsupported reports that the capability is absent.
func Unsupported() Outcome {
	return Outcome{Status: NotSupported}
}

// Fail reports an unexpected failure.
func Fail(err error) Outcome {
	return Outcome{Status: Error, Err: err}
}

// Failf is Fail with a formatted error.
func Failf(format string, args ...any) Outcome {
	return Fail(fmt.Errorf(format, args...))
}

// Func reads one environmental signal. It may block until an asynchronous
// capability completes and should return promptly once ctx is done.
type Func func(ctx context.Context) Outcome

// Definition binds a probe to its identifier.
type Definition struct {
	Name string
	Func Func
}
