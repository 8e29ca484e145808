package probe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Canonical serializes a probe value the way it is hashed and compared.
//
// Strings are used as-is. Pre-serialized JSON keeps its key order and only
// loses insignificant whitespace. Everything else goes through encoding/json
// without HTML escaping so the text matches what JSON.stringify produces for
// the same structure. Map keys come out sorted and struct fields in
// declaration order; no further key normalization is applied.
func Canonical(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.RawMessage:
		return compact(x)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("serializing %T: %w", v, err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

func compact(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("compacting raw JSON: %w", err)
	}
	return buf.String(), nil
}

// Key returns the comparison key of an outcome: its status, plus the
// canonical value for successful outcomes.
func (o Outcome) Key() (string, error) {
	if o.Status != Success {
		return string(o.Status), nil
	}
	c, err := Canonical(o.Value)
	if err != nil {
		return "", err
	}
	return string(Success) + "\x00" + c, nil
}
