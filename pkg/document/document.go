package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// ErrInvalidDocument is returned for documents that cannot be built.
var ErrInvalidDocument = errors.New("invalid graph document")

// Document is a graph in serializable form.
type Document struct {
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// Node describes one node instance.
type Node struct {
	Name   string         `json:"name" yaml:"name"`
	Type   string         `json:"type" yaml:"type"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Inputs holds values stored on input ports, keyed by port name.
	Inputs map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// Connection links an output endpoint to an input endpoint, both written "node.port".
type Connection struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Endpoint splits "node.port" at the last dot.
func Endpoint(ref string) (node, port string, err error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return "", "", fmt.Errorf("%w: endpoint %q must look like node.port", ErrInvalidDocument, ref)
	}
	return ref[:i], ref[i+1:], nil
}

// Ref formats a "node.port" endpoint.
func Ref(node, port string) string {
	return node + "." + port
}

// Node returns the node with the given name.
func (d *Document) Node(name string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].Name == name {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// Build creates a live graph from the document.
// A nil types registry selects schema.Default.
func Build(doc *Document, reg *registry.Registry, types *schema.Registry) (*domain.Graph, error) {
	g := domain.NewGraph(types)

	for _, nd := range doc.Nodes {
		n, err := reg.New(nd.Type, nd.Params)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q: %v", ErrInvalidDocument, nd.Name, err)
		}
		id, err := g.AddNode(nd.Name, n)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		for _, port := range sortedKeys(nd.Inputs) {
			pid, err := g.InputPort(id, port)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
			}
			if err := g.SetInput(pid, nd.Inputs[port]); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
			}
		}
	}

	for _, c := range doc.Connections {
		fromNode, fromPort, err := Endpoint(c.From)
		if err != nil {
			return nil, err
		}
		toNode, toPort, err := Endpoint(c.To)
		if err != nil {
			return nil, err
		}
		if _, err := g.ConnectByName(fromNode, fromPort, toNode, toPort); err != nil {
			return nil, fmt.Errorf("%w: %s -> %s: %w", ErrInvalidDocument, c.From, c.To, err)
		}
	}

	for _, id := range g.Nodes() {
		n, _ := g.Node(id)
		if r, ok := n.(domain.Restorable); ok {
			if err := r.AfterLoad(g, id); err != nil {
				return nil, fmt.Errorf("%w: node %q: %w", ErrInvalidDocument, g.Name(id), err)
			}
		}
	}
	return g, nil
}

// FromGraph flattens a live graph into a document.
// Nodes that are not Persistable are saved without parameters.
func FromGraph(g *domain.Graph, name string) *Document {
	doc := &Document{Name: name}
	for _, id := range g.Nodes() {
		n, _ := g.Node(id)
		nd := Node{Name: g.Name(id), Type: n.Type()}
		if p, ok := n.(domain.Persistable); ok {
			if params := p.Params(); len(params) > 0 {
				nd.Params = params
			}
		}
		for _, pid := range g.Inputs(id) {
			port, _ := g.Port(pid)
			if port.Type == schema.Transition {
				continue
			}
			if v, ok := port.Value(); ok {
				if nd.Inputs == nil {
					nd.Inputs = make(map[string]any)
				}
				nd.Inputs[port.Name] = v
			}
		}
		doc.Nodes = append(doc.Nodes, nd)
	}

	for _, cid := range g.Connections() {
		c, _ := g.Connection(cid)
		from, _ := g.Port(c.From)
		to, _ := g.Port(c.To)
		doc.Connections = append(doc.Connections, Connection{
			From: Ref(g.Name(from.Node), from.Name),
			To:   Ref(g.Name(to.Node), to.Name),
		})
	}
	return doc
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
