// Package digest hashes probe output into fixed-width hex strings.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"log/slog"
)

// HashError is returned in place of a digest when the hash primitive fails.
// It looks like a value, so callers that care must compare against it.
const HashError = "hash_error"

// Size is the length in hex characters of a SHA-256 digest.
const Size = sha256.Size * 2

// Digester turns strings into hex digests.
type Digester struct {
	newHash func() hash.Hash
}

// New returns a Digester over the given hash constructor.
// A nil constructor yields a Digester that always returns HashError.
func New(newHash func() hash.Hash) *Digester {
	return &Digester{newHash: newHash}
}

// Default is the SHA-256 digester used by the engine.
var Default = New(sha256.New)

// Sum is shorthand for Default.Sum.
func Sum(input string) string {
	return Default.Sum(input)
}

// Sum hashes input and returns the lowercase hex encoding.
func (d *Digester) Sum(input string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("digest: hash primitive panicked", "panic", r)
			out = HashError
		}
	}()

	if d == nil || d.newHash == nil {
		return HashError
	}
	h := d.newHash()
	if h == nil {
		return HashError
	}
	if _, err := h.Write([]byte(input)); err != nil {
		slog.Warn("digest: write failed", "error", err)
		return HashError
	}
	return hex.EncodeToString(h.Sum(nil))
}
