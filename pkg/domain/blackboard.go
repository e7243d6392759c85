package domain

import "sort"

// Blackboard is a key/value store shared by the nodes of one evaluation or one
// dialog conversation. It is owned by the caller, which decides its lifecycle.
// A nil *Blackboard reads as empty and ignores writes.
type Blackboard struct {
	vars map[string]any
}

// NewBlackboard creates an empty blackboard.
func NewBlackboard() *Blackboard {
	return &Blackboard{vars: make(map[string]any)}
}

// BlackboardFrom creates a blackboard holding a copy of vars.
func BlackboardFrom(vars map[string]any) *Blackboard {
	bb := NewBlackboard()
	for k, v := range vars {
		bb.vars[k] = v
	}
	return bb
}

// Get returns a variable.
func (b *Blackboard) Get(key string) (any, bool) {
	if b == nil {
		return nil, false
	}
	v, ok := b.vars[key]
	return v, ok
}

// Set writes a variable.
func (b *Blackboard) Set(key string, value any) {
	if b == nil {
		return
	}
	b.vars[key] = value
}

// Delete removes a variable.
func (b *Blackboard) Delete(key string) {
	if b == nil {
		return
	}
	delete(b.vars, key)
}

// Keys lists variable names in sorted order.
func (b *Blackboard) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, 0, len(b.vars))
	for k := range b.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of all variables, suitable for serialization.
func (b *Blackboard) Snapshot() map[string]any {
	out := make(map[string]any)
	if b == nil {
		return out
	}
	for k, v := range b.vars {
		out[k] = v
	}
	return out
}
