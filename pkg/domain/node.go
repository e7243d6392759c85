package domain

// Node is a typed unit of computation.
//
// Calculate reads input values and stages output values through the Calc it receives.
// Returning false means "not ready yet": staged outputs are discarded and the evaluator
// retries the node once more inputs settle. Calculate must never change graph structure.
type Node interface {
	// Type returns the registry identifier of the node variant (e.g. "math.add").
	Type() string

	// Ports declares the node's inputs and outputs, in order.
	Ports() []PortSpec

	Calculate(c *Calc) bool

	// IsInput flags the node as a source even when its inputs are connected.
	IsInput() bool

	// AllowRecursion makes the evaluator re-run the node even if already calculated.
	AllowRecursion() bool

	// ContinueCalculation makes the evaluator walk into downstream nodes after success.
	ContinueCalculation() bool
}

// Behavior answers the capability queries of Node and is meant to be embedded.
// The zero value describes an ordinary node that propagates to its children.
type Behavior struct {
	Source          bool `json:"source,omitempty" yaml:"source,omitempty" mapstructure:"source"`
	Recursive       bool `json:"recursive,omitempty" yaml:"recursive,omitempty" mapstructure:"recursive"`
	StopPropagation bool `json:"stop_propagation,omitempty" yaml:"stop_propagation,omitempty" mapstructure:"stop_propagation"`
}

func (b Behavior) IsInput() bool             { return b.Source }
func (b Behavior) AllowRecursion() bool      { return b.Recursive }
func (b Behavior) ContinueCalculation() bool { return !b.StopPropagation }

// Persistable is implemented by nodes whose configuration must survive a save.
// Params flattens any live structure into plain values the node factory accepts again.
type Persistable interface {
	Params() map[string]any
}

// Restorable is implemented by nodes that rebuild live structures after load,
// once their ports and connections exist in the graph.
type Restorable interface {
	AfterLoad(g *Graph, self NodeID) error
}
