package probe

import (
	"errors"
	"fmt"
	"slices"
)

// ReservedName is the report key holding the final identifier. No probe may
// use it.
const ReservedName = "finalIdentifier"

var (
	ErrReserved  = errors.New("probe name reserved")
	ErrEmptyName = errors.New("probe name required")
	ErrNilFunc   = errors.New("probe func required")
	ErrDuplicate = errors.New("probe already registered")
	ErrUnknown   = errors.New("probe not registered")
)

// Registry is an ordered set of probe definitions. The zero value is empty
// and ready to use. A Registry is not safe for concurrent registration.
type Registry struct {
	defs []Definition
}

// NewRegistry builds a registry from defs, in order.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{}
	for _, d := range defs {
		if err := r.Register(d.Name, d.Func); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a probe.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return ErrEmptyName
	}
	if name == ReservedName {
		return fmt.Errorf("%w: %s", ErrReserved, name)
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilFunc, name)
	}
	if r.index(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.defs = append(r.defs, Definition{Name: name, Func: fn})
	return nil
}

// Get returns a probe by name.
func (r *Registry) Get(name string) (Definition, error) {
	i := r.index(name)
	if i < 0 {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return r.defs[i], nil
}

// Names returns probe names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}

// Definitions returns a copy of the registered probes in order.
func (r *Registry) Definitions() []Definition {
	return slices.Clone(r.defs)
}

// Len returns the number of registered probes.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Filter returns a registry holding only the named probes, kept in this
// registry's order. No names means all probes.
func (r *Registry) Filter(names ...string) (*Registry, error) {
	if len(names) == 0 {
		return &Registry{defs: r.Definitions()}, nil
	}
	for _, n := range names {
		if r.index(n) < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknown, n)
		}
	}
	out := &Registry{}
	for _, d := range r.defs {
		if slices.Contains(names, d.Name) {
			out.defs = append(out.defs, d)
		}
	}
	return out, nil
}

func (r *Registry) index(name string) int {
	return slices.IndexFunc(r.defs, func(d Definition) bool { return d.Name == name })
}
