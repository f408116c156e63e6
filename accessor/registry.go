// Package accessor holds the composition root consumed by application code:
// an immutable table mapping accessor names to the implementations that
// forward their operations to the binding layer's interceptor. Population is
// explicit and happens once at startup; there is no scanning.
package accessor

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound reports a lookup for a name that was never registered.
	ErrNotFound = errors.New("accessor: not registered")

	// ErrDuplicate reports two bindings registered under the same name.
	ErrDuplicate = errors.New("accessor: duplicate binding")
)

// Binding associates a name with an accessor implementation.
type Binding struct {
	Name     string
	Accessor any
}

// Registry resolves accessor implementations by name. The underlying table is
// built once and never mutated, so concurrent Resolve calls need no locking.
type Registry struct {
	accessors map[string]any
}

// NewRegistry builds the registry from the supplied bindings. Empty names,
// nil accessors and duplicates are rejected.
func NewRegistry(bindings ...Binding) (*Registry, error) {
	accessors := make(map[string]any, len(bindings))
	for _, b := range bindings {
		if b.Name == "" {
			return nil, errors.New("accessor: binding name is required")
		}
		if b.Accessor == nil {
			return nil, fmt.Errorf("accessor: binding %q has nil accessor", b.Name)
		}
		if _, exists := accessors[b.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, b.Name)
		}
		accessors[b.Name] = b.Accessor
	}
	return &Registry{accessors: accessors}, nil
}

// Resolve returns the accessor registered under name.
func (r *Registry) Resolve(name string) (any, error) {
	impl, ok := r.accessors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return impl, nil
}

// Names returns the registered accessor names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.accessors))
	for name := range r.accessors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the accessor registered under name, asserted to T.
func Resolve[T any](r *Registry, name string) (T, error) {
	var zero T
	impl, err := r.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := impl.(T)
	if !ok {
		return zero, fmt.Errorf("accessor: %q is %T, not the requested type", name, impl)
	}
	return typed, nil
}
