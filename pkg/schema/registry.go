package schema

import (
	"fmt"
	"sort"
)

// Registry maps type identifiers to their Type.
// It is not safe for concurrent mutation; populate it before sharing.
type Registry struct {
	types map[string]Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Type)}
}

// Default returns a registry holding the built-in types.
func Default() *Registry {
	r := NewRegistry()
	r.Register(&FloatType{})
	r.Register(&IntType{})
	r.Register(&BoolType{})
	r.Register(&StringType{})
	r.Register(&TransitionType{})
	return r
}

// Register adds a type. A type with the same name is overwritten.
func (r *Registry) Register(t Type) {
	r.types[t.Name()] = t
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Known reports whether name is registered.
func (r *Registry) Known(name string) bool {
	_, ok := r.types[name]
	return ok
}

// Compatible reports whether an output of type from may feed an input of type to.
// Types must be identical and registered; values are never coerced across types.
func (r *Registry) Compatible(from, to string) bool {
	return from == to && r.Known(from)
}

// Box coerces value into the representation of the named type.
func (r *Registry) Box(name string, value any) (any, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("unknown value type %q", name)
	}
	v, err := t.Coerce(value)
	if err != nil {
		return nil, &ValidationError{Key: name, Reason: err.Error(), Value: value}
	}
	return v, nil
}

// Names lists the registered type identifiers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
