/*
Package nodegraph evaluates dataflow node graphs and runs the dialog state machines embedded in them.

A graph is a set of nodes with typed input and output ports. Connections carry values from outputs
to inputs, and an evaluator drives the graph to a fixed point: every node whose inputs are ready is
calculated, and nodes that can never become ready are reported as stuck instead of failing the call.
Dialog nodes use the same graph: their "Transition" ports describe where a conversation goes next.

# Key Features

  - Fixed-point evaluation: TraverseAll over the whole graph, RecalculateFrom a changed node.
  - Stuck reporting: every node left uncalculated comes back with a reason.
  - Dialogs: many concurrent conversations keyed by dialog id, each with its own blackboard.
  - Hexagonal Architecture: graphs load from YAML, JSON, HCL or Loam; sessions persist to memory, files or Redis.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/nodegraph"
		"github.com/aretw0/nodegraph/pkg/dsl"
		"github.com/aretw0/nodegraph/pkg/nodes"
	)

	func main() {
		b := dsl.New("calc")
		b.Value("x", 4).To("out", "half.a")
		b.Add("half", nodes.TypeDivide).Param("b", 2)

		eng, err := nodegraph.New(context.Background(), nodegraph.WithDocument(b.Document()))
		if err != nil {
			log.Fatal(err)
		}

		res, err := eng.Evaluate(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.Calculated, res.Report.OK())
	}
*/
package nodegraph
