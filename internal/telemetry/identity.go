package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// State is what the reporter remembers between runs.
type State struct {
	Identity
	// Fingerprint is the last identifier accepted by the service.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// IdentityStore keeps State in a JSON file.
type IdentityStore struct {
	path string
}

// NewIdentityStore returns a store backed by path.
func NewIdentityStore(path string) *IdentityStore {
	return &IdentityStore{path: path}
}

// Load returns the stored state, or a zero State if none was saved yet.
func (s *IdentityStore) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("reading identity: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decoding identity %s: %w", s.path, err)
	}
	return st, nil
}

// Save replaces the stored state atomically. The file is private to the user
// since the token authenticates the client.
func (s *IdentityStore) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".identity-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing identity: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting identity permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing identity: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing identity: %w", err)
	}
	return nil
}
