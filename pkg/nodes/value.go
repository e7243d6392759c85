package nodes

import (
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// Value is a source node that publishes a Float.
// Its "in" port defaults to the configured value and can be overridden with Graph.SetInput.
type Value struct {
	domain.Behavior `mapstructure:",squash"`
	Value           float64 `mapstructure:"value"`
}

// NewValue builds a float.value node. It is a source unless configured otherwise.
func NewValue(params map[string]any) (domain.Node, error) {
	return build(&Value{Behavior: domain.Behavior{Source: true}}, params)
}

func (n *Value) Type() string { return TypeValue }

func (n *Value) Ports() []domain.PortSpec {
	return []domain.PortSpec{
		{Name: "in", Type: schema.Float, Direction: domain.In, Default: n.Value},
		{Name: "out", Type: schema.Float, Direction: domain.Out},
	}
}

func (n *Value) Calculate(c *domain.Calc) bool {
	v, ok := c.Float("in")
	if !ok {
		return false
	}
	return c.SetOutput("out", v)
}

func (n *Value) Params() map[string]any {
	p := behaviorParams(n.Behavior, map[string]any{"value": n.Value})
	if !n.Source {
		p["source"] = false
	}
	return p
}

// Display is a sink that remembers the last value it received.
type Display struct {
	domain.Behavior `mapstructure:",squash"`
	ValueType       string `mapstructure:"type"`
	Label           string `mapstructure:"label"`

	last    any
	hasLast bool
}

// NewDisplay builds a display node. The input type defaults to Float.
func NewDisplay(params map[string]any) (domain.Node, error) {
	n := &Display{ValueType: schema.Float}
	return build(n, params)
}

func (n *Display) Type() string { return TypeDisplay }

func (n *Display) Ports() []domain.PortSpec {
	return []domain.PortSpec{
		{Name: "in", Type: n.ValueType, Direction: domain.In, Required: true},
	}
}

func (n *Display) Calculate(c *domain.Calc) bool {
	v, ok := c.Input("in")
	if !ok {
		return false
	}
	n.last, n.hasLast = v, true
	return true
}

// Last returns the most recent value shown.
func (n *Display) Last() (any, bool) {
	return n.last, n.hasLast
}

func (n *Display) Params() map[string]any {
	p := behaviorParams(n.Behavior, map[string]any{"type": n.ValueType})
	if n.Label != "" {
		p["label"] = n.Label
	}
	return p
}
