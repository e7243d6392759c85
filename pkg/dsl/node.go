package dsl

import (
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/document"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    document.Node
	builder *Builder
}

// Param sets a factory parameter.
func (n *NodeBuilder) Param(key string, value any) *NodeBuilder {
	if n.node.Params == nil {
		n.node.Params = make(map[string]any)
	}
	n.node.Params[key] = value
	return n
}

// Input stores a value on an input port.
func (n *NodeBuilder) Input(port string, value any) *NodeBuilder {
	if n.node.Inputs == nil {
		n.node.Inputs = make(map[string]any)
	}
	n.node.Inputs[port] = value
	return n
}

// Source marks the node as a traversal seed.
func (n *NodeBuilder) Source() *NodeBuilder { return n.Param("source", true) }

// Recursive lets the evaluator re-run the node when already calculated.
func (n *NodeBuilder) Recursive() *NodeBuilder { return n.Param("recursive", true) }

// StopPropagation keeps the evaluator from walking into downstream nodes.
func (n *NodeBuilder) StopPropagation() *NodeBuilder { return n.Param("stop_propagation", true) }

// To connects an output of this node to a "node.port" input.
func (n *NodeBuilder) To(port, target string) *NodeBuilder {
	n.builder.Connect(document.Ref(n.node.Name, port), target)
	return n
}

// Go links the "next" transition to the target dialog node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.To(dialog.PortNext, document.Ref(target, dialog.PortPrev))
}

// Option links choice i to the target dialog node.
func (n *NodeBuilder) Option(i int, target string) *NodeBuilder {
	return n.To(dialog.OptionPort(i), document.Ref(target, dialog.PortPrev))
}

// Then links the "true" and "false" transitions of a branch.
func (n *NodeBuilder) Then(ifTrue, ifFalse string) *NodeBuilder {
	if ifTrue != "" {
		n.To("true", document.Ref(ifTrue, dialog.PortPrev))
	}
	if ifFalse != "" {
		n.To("false", document.Ref(ifFalse, dialog.PortPrev))
	}
	return n
}

// Build returns the underlying document.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() document.Node {
	return n.node
}
