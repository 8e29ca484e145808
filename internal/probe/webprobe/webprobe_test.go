package webprobe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/fpid/internal/digest"
	"github.com/stupside/fpid/internal/engine"
	"github.com/stupside/fpid/internal/probe"
)

// fakePage answers evaluations by matching a marker inside the expression.
type fakePage struct {
	mu        sync.Mutex
	responses map[string][]string
	calls     map[string]int
	err       error
}

func (f *fakePage) Eval(_ context.Context, expr string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for marker, answers := range f.responses {
		if strings.Contains(expr, marker) {
			n := f.calls[marker]
			f.calls[marker] = n + 1
			return []byte(answers[n%len(answers)]), nil
		}
	}
	return []byte(`{"status":"NotSupported"}`), nil
}

func newFakePage(responses map[string][]string) *fakePage {
	return &fakePage{responses: responses, calls: map[string]int{}}
}

func TestNamesMatchCanonicalOrder(t *testing.T) {
	assert.Equal(t, []string{
		"canvas", "audio", "webgl", "fonts", "screen", "intl", "sensors",
		"plugins", "browserApis", "hardwareApis", "battery", "math", "jsonOrder",
	}, Names())

	defs := Probes(newFakePage(nil))
	require.Len(t, defs, 13)
	for i, d := range defs {
		assert.Equal(t, Names()[i], d.Name)
		assert.NotNil(t, d.Func)
	}
}

func TestScriptsAreEmbedded(t *testing.T) {
	require.Contains(t, envelopeJS, "__PROBE__")
	for _, s := range scripts {
		assert.NotEmpty(t, strings.TrimSpace(s.body), s.name)
		assert.NotContains(t, wrap(s.body), "__PROBE__", s.name)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		status probe.Status
		value  any
	}{
		{"string value", `{"status":"Success","value":"true,false"}`, probe.Success, "true,false"},
		{"sentinel lookalike", `{"status":"Success","value":"Blocked"}`, probe.Success, "Blocked"},
		{"object keeps order", `{"status":"Success","value":{"z":1,"a":2}}`, probe.Success, json.RawMessage(`{"z":1,"a":2}`)},
		{"number", `{"status":"Success","value":12.5}`, probe.Success, json.RawMessage(`12.5`)},
		{"blocked", `{"status":"Blocked"}`, probe.Blocked, nil},
		{"not supported", `{"status":"NotSupported"}`, probe.NotSupported, nil},
		{"error", `{"status":"Error","error":"Gyroscope is not defined"}`, probe.Error, nil},
		{"missing value", `{"status":"Success"}`, probe.Error, nil},
		{"unknown status", `{"status":"Maybe"}`, probe.Error, nil},
		{"not json", `{oops`, probe.Error, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := decode([]byte(tt.raw))
			assert.Equal(t, tt.status, out.Status)
			if tt.status == probe.Success {
				assert.Equal(t, tt.value, out.Value)
			}
		})
	}
}

func TestDecodeKeepsScriptError(t *testing.T) {
	out := decode([]byte(`{"status":"Error","error":"Gyroscope is not defined"}`))
	require.ErrorContains(t, out.Err, "Gyroscope is not defined")
}

func TestScriptEvaluationError(t *testing.T) {
	page := &fakePage{err: errors.New("target closed")}

	out := Script(page, "() => ok(1)")(context.Background())

	assert.Equal(t, probe.Error, out.Status)
	assert.ErrorContains(t, out.Err, "target closed")
}

func TestProbeSetThroughEngine(t *testing.T) {
	page := newFakePage(map[string][]string{
		"Math.SQRT1_2":           {`{"status":"Success","value":"3.141592653589793,2.718281828459045"}`},
		"x: true, a: [1, 2, 3]":  {`{"status":"Success","value":"{\"z\":1,\"y\":\"test\",\"x\":true,\"a\":[1,2,3],\"b\":null}"}`},
		"toDataURL":              {`{"status":"Success","value":"data:image/png;base64,AAA"}`, `{"status":"Success","value":"data:image/png;base64,AAB"}`},
		"OfflineAudioContext":    {`{"status":"Blocked"}`},
		"getBattery":             {`{"status":"Success","value":"true"}`},
		"WEBGL_debug_renderer":   {`{"status":"NotSupported"}`},
		"document.fonts?.check":  {`{"status":"Success","value":"true,true"}`},
		"resolvedOptions":        {`{"status":"Success","value":"{\"locale\":\"en-US\"}"}`},
		"new Gyroscope":          {`{"status":"Error","error":"Gyroscope is not defined"}`},
		"navigator.plugins":      {`{"status":"Success","value":"NoPlugins"}`},
		"'MathMLElement'":        {`{"status":"Success","value":"function,function"}`},
		"'hid' in navigator":     {`{"status":"Success","value":"{\"hid\":true,\"usb\":true,\"serial\":true}"}`},
		"window.screen.width":    {`{"status":"Success","value":"{\"width\":1920}"}`},
	})

	reg, err := probe.NewRegistry(Probes(page)...)
	require.NoError(t, err)

	e := engine.New(reg, engine.Config{Attempts: 3, Delay: time.Millisecond, ProbeTimeout: time.Second})
	report := e.Generate(context.Background())

	canvas, _ := report.Result("canvas")
	assert.Equal(t, probe.Blocked, canvas.Status, "noisy canvas must be flagged")

	audio, _ := report.Result("audio")
	assert.Equal(t, probe.Blocked, audio.Status)
	assert.Equal(t, 1, page.calls["OfflineAudioContext"], "blocked probe is not repeated")

	webgl, _ := report.Result("webgl")
	assert.Equal(t, probe.NotSupported, webgl.Status)

	sensors, _ := report.Result("sensors")
	assert.Equal(t, probe.Error, sensors.Status)

	jsonOrder, _ := report.Result("jsonOrder")
	assert.Equal(t, probe.Success, jsonOrder.Status)
	assert.Equal(t, digest.Sum(`{"z":1,"y":"test","x":true,"a":[1,2,3],"b":null}`), jsonOrder.Digest)

	math, _ := report.Result("math")
	assert.Equal(t, digest.Sum("3.141592653589793,2.718281828459045"), math.Digest)
	assert.Equal(t, 3, page.calls["Math.SQRT1_2"])
}
