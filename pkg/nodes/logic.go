package nodes

import (
	"fmt"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/schema"
)

var comparators = map[string]func(a, b float64) bool{
	"<":  func(a, b float64) bool { return a < b },
	"<=": func(a, b float64) bool { return a <= b },
	">":  func(a, b float64) bool { return a > b },
	">=": func(a, b float64) bool { return a >= b },
	"==": func(a, b float64) bool { return a == b },
	"!=": func(a, b float64) bool { return a != b },
}

// Compare evaluates "a <op> b" into a Bool.
type Compare struct {
	domain.Behavior `mapstructure:",squash"`
	Op              string   `mapstructure:"op"`
	B               *float64 `mapstructure:"b"`
}

// NewCompare builds a logic.compare node. The operator defaults to "==".
func NewCompare(params map[string]any) (domain.Node, error) {
	n := &Compare{Op: "=="}
	if _, err := build(n, params); err != nil {
		return nil, err
	}
	if _, ok := comparators[n.Op]; !ok {
		return nil, fmt.Errorf("unknown comparison operator %q", n.Op)
	}
	return n, nil
}

func (n *Compare) Type() string { return TypeCompare }

func (n *Compare) Ports() []domain.PortSpec {
	return []domain.PortSpec{
		{Name: "a", Type: schema.Float, Direction: domain.In, Required: true},
		floatIn("b", n.B),
		{Name: "out", Type: schema.Bool, Direction: domain.Out},
	}
}

func (n *Compare) Calculate(c *domain.Calc) bool {
	a, okA := c.Float("a")
	b, okB := c.Float("b")
	if !okA || !okB {
		return false
	}
	return c.SetOutput("out", comparators[n.Op](a, b))
}

func (n *Compare) Params() map[string]any {
	p := behaviorParams(n.Behavior, map[string]any{"op": n.Op})
	if n.B != nil {
		p["b"] = *n.B
	}
	return p
}

// Not negates a Bool.
type Not struct {
	domain.Behavior `mapstructure:",squash"`
}

// NewNot builds a logic.not node.
func NewNot(params map[string]any) (domain.Node, error) {
	return build(&Not{}, params)
}

func (n *Not) Type() string { return TypeNot }

func (n *Not) Ports() []domain.PortSpec {
	return []domain.PortSpec{
		{Name: "in", Type: schema.Bool, Direction: domain.In, Required: true},
		{Name: "out", Type: schema.Bool, Direction: domain.Out},
	}
}

func (n *Not) Calculate(c *domain.Calc) bool {
	v, ok := c.Bool("in")
	if !ok {
		return false
	}
	return c.SetOutput("out", !v)
}

func (n *Not) Params() map[string]any {
	return behaviorParams(n.Behavior, map[string]any{})
}
