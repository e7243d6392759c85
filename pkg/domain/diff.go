package domain

import (
	"reflect"
)

// NodeSnapshot captures a node's calculation state and output values.
type NodeSnapshot struct {
	Calculated bool           `json:"calculated"`
	Outputs    map[string]any `json:"outputs,omitempty"`
}

// GraphSnapshot captures every node of a graph, keyed by node name.
type GraphSnapshot map[string]NodeSnapshot

// Snapshot records the calculated flags and output values of every node.
func (g *Graph) Snapshot() GraphSnapshot {
	snap := make(GraphSnapshot, g.Len())
	for _, id := range g.Nodes() {
		ns := NodeSnapshot{Calculated: g.Calculated(id)}
		for _, pid := range g.Outputs(id) {
			p, _ := g.Port(pid)
			if v, ok := p.Value(); ok {
				if ns.Outputs == nil {
					ns.Outputs = make(map[string]any)
				}
				ns.Outputs[p.Name] = v
			}
		}
		snap[g.Name(id)] = ns
	}
	return snap
}

// GraphDiff represents the changes between two graph snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type GraphDiff struct {
	// Outputs contains only changed or added output values, per node.
	// A removed output is present with a nil value.
	Outputs map[string]map[string]any `json:"outputs,omitempty"`

	// Calculated contains nodes whose calculated flag flipped.
	Calculated map[string]bool `json:"calculated,omitempty"`

	// Removed lists nodes present in the old snapshot only.
	Removed []string `json:"removed,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap GraphSnapshot) *GraphDiff {
	diff := &GraphDiff{}

	for name, n := range newSnap {
		o, existed := oldSnap[name]
		if !existed || o.Calculated != n.Calculated {
			if diff.Calculated == nil {
				diff.Calculated = make(map[string]bool)
			}
			diff.Calculated[name] = n.Calculated
		}
		if delta := diffOutputs(o.Outputs, n.Outputs); delta != nil {
			if diff.Outputs == nil {
				diff.Outputs = make(map[string]map[string]any)
			}
			diff.Outputs[name] = delta
		}
	}
	for name := range oldSnap {
		if _, ok := newSnap[name]; !ok {
			diff.Removed = append(diff.Removed, name)
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffOutputs(old, new map[string]any) map[string]any {
	delta := make(map[string]any)

	// Check for Added or Modified
	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	// Check for Deletions
	for k := range old {
		if _, exists := new[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *GraphDiff) IsEmpty() bool {
	return d == nil || (len(d.Outputs) == 0 && len(d.Calculated) == 0 && len(d.Removed) == 0)
}
