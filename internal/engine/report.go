package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/stupside/fpid/internal/probe"
)

// Entry is a named probe result.
type Entry struct {
	Name string
	Result
}

// Report is the immutable outcome of one Generate call.
type Report struct {
	version    int
	policy     Policy
	entries    []Entry
	identifier string
}

// FinalIdentifier returns the combined digest.
func (r *Report) FinalIdentifier() string { return r.identifier }

// Version returns the fingerprint format version.
func (r *Report) Version() int { return r.version }

// Policy returns the combination policy the identifier was built with.
func (r *Report) Policy() Policy { return r.policy }

// Entries returns the results in registry order.
func (r *Report) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Result returns the result of the named probe.
func (r *Report) Result(name string) (Result, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e.Result, true
		}
	}
	return Result{}, false
}

// Genuine counts successful probes. Callers should treat a report with few
// genuine results as low confidence.
func (r *Report) Genuine() int {
	n := 0
	for _, e := range r.entries {
		if e.Status == probe.Success {
			n++
		}
	}
	return n
}

// Counts tallies results by status.
func (r *Report) Counts() map[probe.Status]int {
	counts := make(map[probe.Status]int, 4)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts
}

// MarshalJSON encodes the report as an object keyed by probe name in
// registry order, followed by "finalIdentifier".
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, e := range r.entries {
		if err := writeMember(&buf, e.Name, e.Result); err != nil {
			return nil, fmt.Errorf("encoding probe %q: %w", e.Name, err)
		}
		buf.WriteByte(',')
	}
	if err := writeMember(&buf, probe.ReservedName, r.identifier); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, v any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

// Lookup reads a value from the JSON form of the report with a gjson path,
// for example "canvas.status" or "finalIdentifier".
func (r *Report) Lookup(path string) (gjson.Result, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encoding report: %w", err)
	}
	return gjson.GetBytes(data, path), nil
}
