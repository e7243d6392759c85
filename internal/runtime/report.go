package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/nodegraph/pkg/domain"
)

// StuckNode identifies a node that could not be calculated and why.
type StuckNode struct {
	ID     domain.NodeID `json:"id"`
	Name   string        `json:"name"`
	Type   string        `json:"type"`
	Reason string        `json:"reason"`
}

// Report is the outcome of one evaluation call.
type Report struct {
	Scope      string          `json:"scope"`
	Origin     string          `json:"origin,omitempty"`
	Calculated []domain.NodeID `json:"calculated"`
	Stuck      []StuckNode     `json:"stuck,omitempty"`
	Passes     int             `json:"passes"`
}

// OK reports whether every affected node was calculated.
func (r *Report) OK() bool {
	return r == nil || len(r.Stuck) == 0
}

// Err returns a *StuckError when nodes were left uncalculated, nil otherwise.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return &StuckError{Nodes: r.Stuck}
}

// StuckError lists the nodes that blocked an evaluation from completing.
type StuckError struct {
	Nodes []StuckNode
}

func (e *StuckError) Error() string {
	names := make([]string, 0, len(e.Nodes))
	for _, n := range e.Nodes {
		names = append(names, n.Name)
	}
	return fmt.Sprintf("evaluation did not complete: %d node(s) blocked: %s", len(e.Nodes), strings.Join(names, ", "))
}
