// Package webprobe evaluates the browser probe set inside a page.
//
// Every probe is a JavaScript function embedded from js/ and run through a
// shared envelope that reports {status, value} so sentinel statuses never
// travel as ordinary strings. Value strings are byte-identical to what the
// in-page client hashes, so digests agree with it.
package webprobe

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/stupside/fpid/internal/probe"
)

// Evaluator runs a JavaScript expression and returns the JSON encoding of
// its (awaited) value.
type Evaluator interface {
	Eval(ctx context.Context, expr string) ([]byte, error)
}

//go:embed js/envelope.js
var envelopeJS string

var (
	//go:embed js/canvas.js
	canvasJS string
	//go:embed js/audio.js
	audioJS string
	//go:embed js/webgl.js
	webglJS string
	//go:embed js/fonts.js
	fontsJS string
	//go:embed js/screen.js
	screenJS string
	//go:embed js/intl.js
	intlJS string
	//go:embed js/sensors.js
	sensorsJS string
	//go:embed js/plugins.js
	pluginsJS string
	//go:embed js/browser_apis.js
	browserAPIsJS string
	//go:embed js/hardware_apis.js
	hardwareAPIsJS string
	//go:embed js/battery.js
	batteryJS string
	//go:embed js/math.js
	mathJS string
	//go:embed js/json_order.js
	jsonOrderJS string
)

// scripts lists the probe set in its canonical order.
var scripts = []struct {
	name string
	body string
}{
	{"canvas", canvasJS},
	{"audio", audioJS},
	{"webgl", webglJS},
	{"fonts", fontsJS},
	{"screen", screenJS},
	{"intl", intlJS},
	{"sensors", sensorsJS},
	{"plugins", pluginsJS},
	{"browserApis", browserAPIsJS},
	{"hardwareApis", hardwareAPIsJS},
	{"battery", batteryJS},
	{"math", mathJS},
	{"jsonOrder", jsonOrderJS},
}

// Names returns the probe names in canonical order.
func Names() []string {
	names := make([]string, len(scripts))
	for i, s := range scripts {
		names[i] = s.name
	}
	return names
}

// Probes returns the browser probe set bound to ev.
func Probes(ev Evaluator) []probe.Definition {
	defs := make([]probe.Definition, len(scripts))
	for i, s := range scripts {
		defs[i] = probe.Definition{Name: s.name, Func: Script(ev, s.body)}
	}
	return defs
}

// Script builds a probe from a JavaScript function body. The function may
// call ok(value), blocked(), unsupported() or failed(err), sync or async.
func Script(ev Evaluator, fn string) probe.Func {
	expr := wrap(fn)
	return func(ctx context.Context) probe.Outcome {
		raw, err := ev.Eval(ctx, expr)
		if err != nil {
			return probe.Fail(err)
		}
		return decode(raw)
	}
}

func wrap(fn string) string {
	return strings.NewReplacer("__PROBE__", strings.TrimSpace(fn)).Replace(envelopeJS)
}

// decode turns an envelope into an outcome. String values stay strings;
// any other value is kept as raw JSON in the key order the page produced.
func decode(raw []byte) probe.Outcome {
	if !gjson.ValidBytes(raw) {
		return probe.Failf("malformed probe envelope: %.64q", raw)
	}
	env := gjson.ParseBytes(raw)

	switch status := probe.Status(env.Get("status").String()); status {
	case probe.Success:
		v := env.Get("value")
		if !v.Exists() {
			return probe.Failf("probe envelope has no value")
		}
		if v.Type == gjson.String {
			return probe.Value(v.String())
		}
		return probe.Value(json.RawMessage(v.Raw))
	case probe.Blocked:
		return probe.Block()
	case probe.NotSupported:
		return probe.Unsupported()
	case probe.Error:
		return probe.Failf("probe script: %s", env.Get("error").String())
	default:
		return probe.Failf("probe envelope has unknown status %q", status)
	}
}
