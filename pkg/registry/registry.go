package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Factory builds a node variant from its persisted parameters.
// A nil or empty params map must yield a node in its default configuration.
type Factory func(params map[string]any) (domain.Node, error)

// Registry maps node type names to factories.
// Registration is explicit: packages that provide nodes expose a Register function.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a node type to the registry.
// If a type with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = fn
}

// New looks up a node type by name and builds an instance.
func (r *Registry) New(name string, params map[string]any) (domain.Node, error) {
	r.mu.RLock()
	fn, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: node type not found: %s", domain.ErrUnknownType, name)
	}

	node, err := fn(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", name, err)
	}
	if node.Type() != name {
		return nil, fmt.Errorf("factory for %s built a %s node", name, node.Type())
	}
	return node, nil
}

// Has reports whether a node type is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered node types, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode fills out from params using mapstructure tags.
// Loose input types are accepted (e.g. "1.5" into a float field) and unknown keys are rejected.
func Decode(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Squash:           true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}
