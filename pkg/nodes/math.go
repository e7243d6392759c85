package nodes

import (
	"fmt"
	"math"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// Binary applies an arithmetic operator to inputs "a" and "b".
// A and B set input defaults used while the port is unconnected and unset.
type Binary struct {
	domain.Behavior `mapstructure:",squash"`
	A               *float64 `mapstructure:"a"`
	B               *float64 `mapstructure:"b"`

	op string
}

func binaryFactory(op string) func(map[string]any) (domain.Node, error) {
	return func(params map[string]any) (domain.Node, error) {
		return build(&Binary{op: op}, params)
	}
}

func (n *Binary) Type() string { return n.op }

func (n *Binary) Ports() []domain.PortSpec {
	return []domain.PortSpec{
		floatIn("a", n.A),
		floatIn("b", n.B),
		{Name: "out", Type: schema.Float, Direction: domain.Out},
	}
}

func (n *Binary) Calculate(c *domain.Calc) bool {
	a, okA := c.Float("a")
	b, okB := c.Float("b")
	if !okA || !okB {
		return false
	}
	var out float64
	switch n.op {
	case TypeAdd:
		out = a + b
	case TypeSubtract:
		out = a - b
	case TypeMultiply:
		out = a * b
	case TypeDivide:
		if b == 0 {
			return false
		}
		out = a / b
	default:
		return false
	}
	return c.SetOutput("out", out)
}

func (n *Binary) Params() map[string]any {
	p := behaviorParams(n.Behavior, map[string]any{})
	if n.A != nil {
		p["a"] = *n.A
	}
	if n.B != nil {
		p["b"] = *n.B
	}
	return p
}

// Clamp limits "value" to the range [min, max].
type Clamp struct {
	domain.Behavior `mapstructure:",squash"`
	Min             float64 `mapstructure:"min"`
	Max             float64 `mapstructure:"max"`
}

// NewClamp builds a math.clamp node. The range defaults to [0, 1].
func NewClamp(params map[string]any) (domain.Node, error) {
	n := &Clamp{Min: 0, Max: 1}
	if _, err := build(n, params); err != nil {
		return nil, err
	}
	if n.Min > n.Max {
		return nil, fmt.Errorf("min %v is greater than max %v", n.Min, n.Max)
	}
	return n, nil
}

func (n *Clamp) Type() string { return TypeClamp }

func (n *Clamp) Ports() []domain.PortSpec {
	return []domain.PortSpec{
		{Name: "value", Type: schema.Float, Direction: domain.In, Required: true},
		{Name: "min", Type: schema.Float, Direction: domain.In, Default: n.Min},
		{Name: "max", Type: schema.Float, Direction: domain.In, Default: n.Max},
		{Name: "out", Type: schema.Float, Direction: domain.Out},
	}
}

func (n *Clamp) Calculate(c *domain.Calc) bool {
	v, ok := c.Float("value")
	if !ok {
		return false
	}
	lo, okLo := c.Float("min")
	hi, okHi := c.Float("max")
	if !okLo || !okHi || lo > hi {
		return false
	}
	return c.SetOutput("out", math.Min(math.Max(v, lo), hi))
}

func (n *Clamp) Params() map[string]any {
	return behaviorParams(n.Behavior, map[string]any{"min": n.Min, "max": n.Max})
}

// Lerp interpolates linearly between "a" and "b" by "t".
type Lerp struct {
	domain.Behavior `mapstructure:",squash"`
	T               *float64 `mapstructure:"t"`
}

// NewLerp builds a math.lerp node.
func NewLerp(params map[string]any) (domain.Node, error) {
	return build(&Lerp{}, params)
}

func (n *Lerp) Type() string { return TypeLerp }

func (n *Lerp) Ports() []domain.PortSpec {
	return []domain.PortSpec{
		{Name: "a", Type: schema.Float, Direction: domain.In, Required: true},
		{Name: "b", Type: schema.Float, Direction: domain.In, Required: true},
		floatIn("t", n.T),
		{Name: "out", Type: schema.Float, Direction: domain.Out},
	}
}

func (n *Lerp) Calculate(c *domain.Calc) bool {
	a, okA := c.Float("a")
	b, okB := c.Float("b")
	t, okT := c.Float("t")
	if !okA || !okB || !okT {
		return false
	}
	return c.SetOutput("out", a+(b-a)*t)
}

func (n *Lerp) Params() map[string]any {
	p := behaviorParams(n.Behavior, map[string]any{})
	if n.T != nil {
		p["t"] = *n.T
	}
	return p
}

// floatIn declares a required Float input whose default is def when set.
func floatIn(name string, def *float64) domain.PortSpec {
	spec := domain.PortSpec{Name: name, Type: schema.Float, Direction: domain.In, Required: true}
	if def != nil {
		spec.Default = *def
	}
	return spec
}
