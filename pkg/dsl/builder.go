package dsl

import (
	"fmt"

	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/nodes"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// Builder manages the graph construction.
type Builder struct {
	name        string
	order       []string
	nodes       map[string]*NodeBuilder
	connections []document.Connection
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(name, nodeType string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    document.Node{Name: name, Type: nodeType},
		builder: b,
	}
	b.nodes[name] = nb
	b.order = append(b.order, name)
	return nb
}

// Connect links two "node.port" endpoints.
func (b *Builder) Connect(from, to string) *Builder {
	b.connections = append(b.connections, document.Connection{From: from, To: to})
	return b
}

// Value adds a float.value source.
func (b *Builder) Value(name string, v float64) *NodeBuilder {
	return b.Add(name, nodes.TypeValue).Param("value", v)
}

// Start adds the start node of a dialog.
func (b *Builder) Start(name string, dialogID int, text string) *NodeBuilder {
	nb := b.Add(name, dialog.TypeStart).Param("dialog_id", dialogID)
	if text != "" {
		nb.Param("text", text)
	}
	return nb
}

// Say adds a dialog message.
func (b *Builder) Say(name, text string) *NodeBuilder {
	return b.Add(name, dialog.TypeMessage).Param("text", text)
}

// Ask adds a dialog choice.
func (b *Builder) Ask(name, text string, options ...string) *NodeBuilder {
	return b.Add(name, dialog.TypeChoice).
		Param("text", text).
		Param("options", options)
}

// If adds a dialog branch on a blackboard condition.
func (b *Builder) If(name, key, op string, value any) *NodeBuilder {
	nb := b.Add(name, dialog.TypeBranch).Param("key", key).Param("op", op)
	if value != nil {
		nb.Param("value", value)
	}
	return nb
}

// Set adds a dialog node that writes a blackboard variable.
func (b *Builder) Set(name, key string, value any) *NodeBuilder {
	return b.Add(name, dialog.TypeSet).Param("key", key).Param("value", value)
}

// End adds a dialog end node.
func (b *Builder) End(name, text string) *NodeBuilder {
	nb := b.Add(name, dialog.TypeEnd)
	if text != "" {
		nb.Param("text", text)
	}
	return nb
}

// Document returns the graph document built so far.
func (b *Builder) Document() *document.Document {
	doc := &document.Document{Name: b.name}
	for _, name := range b.order {
		doc.Nodes = append(doc.Nodes, b.nodes[name].Build())
	}
	doc.Connections = append(doc.Connections, b.connections...)
	return doc
}

// Build compiles the document into a live graph.
func (b *Builder) Build(reg *registry.Registry, types *schema.Registry) (*domain.Graph, error) {
	g, err := document.Build(b.Document(), reg, types)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph %q: %w", b.name, err)
	}
	return g, nil
}
