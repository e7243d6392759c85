package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/nodegraph/internal/presentation/graph"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/dsl"
	"github.com/aretw0/nodegraph/pkg/nodes"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, b *dsl.Builder) *domain.Graph {
	reg := registry.NewRegistry()
	nodes.Register(reg)
	dialog.Register(reg)
	g, err := b.Build(reg, nil)
	require.NoError(t, err)
	return g
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		graph    func() *dsl.Builder
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Dialog Shapes",
			graph: func() *dsl.Builder {
				b := dsl.New("talk")
				b.Start("hello", 1, "").Go("ask")
				b.Ask("ask", "?", "a", "b").Option(0, "flag").Option(1, "done")
				b.Set("flag", "k", 1).Go("end2")
				b.End("done", "")
				b.End("end2", "")
				return b
			},
			contains: []string{
				`hello(("hello <br/> <small>dialog.start</small>"))`,
				`ask[/"ask <br/> <small>dialog.choice</small>"/]`,
				`flag{"flag <br/> <small>dialog.set</small>"}`,
				`done["done <br/> <small>dialog.end</small>"]`,
				"hello ==> ask",
				`ask == "option0" ==> flag`,
				`ask == "option1" ==> done`,
			},
		},
		{
			name: "Data Connections And Sanitization",
			graph: func() *dsl.Builder {
				b := dsl.New("calc")
				b.Value("my-value", 1).Source().To("out", "sum.a")
				b.Add("sum", nodes.TypeAdd).To("out", "path/show.in")
				b.Add("path/show", nodes.TypeDisplay)
				return b
			},
			contains: []string{
				`my_value(["my-value <br/> <small>float.value</small>"])`,
				`my_value -- "out:a" --> sum`,
				`sum -- "out:in" --> path_show`,
			},
			excludes: []string{"classDef"},
		},
		{
			name: "Overlay",
			graph: func() *dsl.Builder {
				b := dsl.New("calc")
				b.Value("x", 1).To("out", "y.in")
				b.Add("y", nodes.TypeDisplay)
				return b
			},
			overlay: &graph.GraphOverlay{
				Calculated: []string{"x", "x"},
				Stuck:      []string{"y", "ghost"},
			},
			contains: []string{
				"classDef stuck",
				"class x calculated;",
				"class y stuck;",
			},
			excludes: []string{"ghost"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(build(t, tt.graph()), tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q\ngot:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("expected output not to contain %q\ngot:\n%s", unwanted, got)
				}
			}
			if n := strings.Count(got, "class x calculated;"); n > 1 {
				t.Errorf("duplicate overlay entries: %d", n)
			}
		})
	}
}
