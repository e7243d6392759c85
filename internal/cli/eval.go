package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/internal/presentation/tui"
	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/aretw0/nodegraph/pkg/domain"
)

// Assignment is a parsed --set flag.
type Assignment struct {
	Node  string
	Port  string
	Value any
}

// ParseAssignment reads "node.port=value". The value is decoded as JSON when it
// parses, so numbers and booleans keep their type; anything else stays a string.
func ParseAssignment(s string) (Assignment, error) {
	target, raw, ok := strings.Cut(s, "=")
	if !ok {
		return Assignment{}, fmt.Errorf("invalid assignment %q: want node.port=value", s)
	}
	node, port, err := document.Endpoint(strings.TrimSpace(target))
	if err != nil {
		return Assignment{}, err
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	return Assignment{Node: node, Port: port, Value: value}, nil
}

// EvalOptions configures Eval.
type EvalOptions struct {
	// From recalculates downstream of one node instead of traversing everything.
	From string
	Set  []string

	JSON  bool
	Plain bool
}

type evalOutput struct {
	Scope      string                `json:"scope"`
	Origin     string                `json:"origin,omitempty"`
	Calculated []string              `json:"calculated"`
	Stuck      []nodegraph.StuckNode `json:"stuck,omitempty"`
	Passes     int                   `json:"passes"`
	Graph      domain.GraphSnapshot  `json:"graph"`
	Blackboard map[string]any        `json:"blackboard,omitempty"`
}

// Eval applies the assignments, evaluates the graph and prints the report.
// It returns the report error when nodes are left stuck.
func Eval(ctx context.Context, engine *nodegraph.Engine, opts EvalOptions, w io.Writer) error {
	assignments := make([]Assignment, 0, len(opts.Set))
	for _, s := range opts.Set {
		a, err := ParseAssignment(s)
		if err != nil {
			return err
		}
		assignments = append(assignments, a)
	}
	for _, a := range assignments {
		if _, err := engine.SetInput(ctx, a.Node, a.Port, a.Value); err != nil {
			return err
		}
	}

	var (
		res *nodegraph.Result
		err error
	)
	if opts.From != "" {
		res, err = engine.Recalculate(ctx, opts.From)
	} else {
		res, err = engine.Evaluate(ctx)
	}
	if err != nil {
		return err
	}

	if opts.JSON {
		snap, err := engine.Snapshot()
		if err != nil {
			return err
		}
		vars, err := engine.Blackboard()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(evalOutput{
			Scope:      res.Report.Scope,
			Origin:     res.Report.Origin,
			Calculated: res.Calculated,
			Stuck:      res.Report.Stuck,
			Passes:     res.Report.Passes,
			Graph:      snap,
			Blackboard: vars,
		}); err != nil {
			return err
		}
		return res.Report.Err()
	}

	printer := tui.NewPrinter(w)
	if opts.Plain {
		printer = tui.NewPlainPrinter(w)
	}
	printer.Report(engine.Graph(), res.Report)
	return res.Report.Err()
}
