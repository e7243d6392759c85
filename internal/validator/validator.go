package validator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// Result collects the problems found in a document.
// Errors make the document unusable; warnings point at nodes that will never calculate
// unless someone sets their inputs later.
type Result struct {
	Errors   []error
	Warnings []string
}

// Err returns nil for a valid document, otherwise a *schema.AggregateError.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &schema.AggregateError{Errors: r.Errors}
}

func (r *Result) fail(key, format string, args ...any) {
	r.Errors = append(r.Errors, &schema.ValidationError{Key: key, Reason: fmt.Sprintf(format, args...)})
}

// ValidateDocument checks a document without stopping at the first problem.
// Unlike document.Build it reports every broken node and connection, duplicate dialog ids,
// and dialog nodes no start node can reach.
func ValidateDocument(doc *document.Document, reg *registry.Registry, types *schema.Registry) *Result {
	res := &Result{}
	g := domain.NewGraph(types)

	for _, nd := range doc.Nodes {
		n, err := reg.New(nd.Type, nd.Params)
		if err != nil {
			res.fail(nd.Name, "%v", err)
			continue
		}
		id, err := g.AddNode(nd.Name, n)
		if err != nil {
			res.fail(nd.Name, "%v", err)
			continue
		}
		for port, v := range nd.Inputs {
			pid, err := g.InputPort(id, port)
			if err == nil {
				err = g.SetInput(pid, v)
			}
			if err != nil {
				res.fail(nd.Name, "input %q: %v", port, err)
			}
		}
	}

	for _, c := range doc.Connections {
		key := c.From + " -> " + c.To
		fromNode, fromPort, err := document.Endpoint(c.From)
		if err != nil {
			res.fail(key, "%v", err)
			continue
		}
		toNode, toPort, err := document.Endpoint(c.To)
		if err != nil {
			res.fail(key, "%v", err)
			continue
		}
		if _, err := g.ConnectByName(fromNode, fromPort, toNode, toPort); err != nil {
			res.fail(key, "%v", err)
		}
	}

	checkDialogs(g, res)
	checkInputs(g, res)
	return res
}

func checkDialogs(g *domain.Graph, res *Result) {
	starts, err := dialog.StartNodes(g)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateDialog) {
			res.fail("dialog", "%v", err)
		}
		return
	}

	// Crawl transitions from every start node.
	visited := make(map[domain.NodeID]bool)
	queue := make([]domain.NodeID, 0, len(starts))
	for _, id := range starts {
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		for _, pid := range g.Outputs(current) {
			port, _ := g.Port(pid)
			if port.Type != schema.Transition {
				continue
			}
			for _, target := range g.Targets(pid) {
				tp, _ := g.Port(target)
				if !visited[tp.Node] {
					queue = append(queue, tp.Node)
				}
			}
		}
	}

	for _, id := range g.Nodes() {
		n, _ := g.Node(id)
		if _, ok := n.(dialog.Node); ok && !visited[id] {
			res.fail(g.Name(id), "dialog node is not reachable from any start node")
		}
	}
}

func checkInputs(g *domain.Graph, res *Result) {
	var warnings []string
	for _, id := range g.Nodes() {
		for _, pid := range g.Inputs(id) {
			port, _ := g.Port(pid)
			if !port.Required || port.Connected() {
				continue
			}
			if _, ok := g.Value(pid); !ok {
				warnings = append(warnings, fmt.Sprintf("%s: input %q has no connection and no value", g.Name(id), port.Name))
			}
		}
	}
	sort.Strings(warnings)
	res.Warnings = append(res.Warnings, warnings...)
}
