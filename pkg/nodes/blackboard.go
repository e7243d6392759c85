package nodes

import (
	"fmt"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// BlackboardGet publishes a blackboard variable.
// Without Default, a missing key leaves the node not ready.
type BlackboardGet struct {
	domain.Behavior `mapstructure:",squash"`
	Key             string `mapstructure:"key"`
	ValueType       string `mapstructure:"type"`
	Default         any    `mapstructure:"default"`
}

// NewBlackboardGet builds a blackboard.get node. The value type defaults to Float.
func NewBlackboardGet(params map[string]any) (domain.Node, error) {
	n := &BlackboardGet{ValueType: schema.Float, Behavior: domain.Behavior{Source: true}}
	if _, err := build(n, params); err != nil {
		return nil, err
	}
	if n.Key == "" {
		return nil, fmt.Errorf("key is required")
	}
	return n, nil
}

func (n *BlackboardGet) Type() string { return TypeBlackboardGet }

func (n *BlackboardGet) Ports() []domain.PortSpec {
	return []domain.PortSpec{{Name: "out", Type: n.ValueType, Direction: domain.Out}}
}

func (n *BlackboardGet) Calculate(c *domain.Calc) bool {
	v, ok := c.Blackboard().Get(n.Key)
	if !ok {
		if n.Default == nil {
			return false
		}
		v = n.Default
	}
	return c.SetOutput("out", v)
}

func (n *BlackboardGet) Params() map[string]any {
	p := behaviorParams(n.Behavior, map[string]any{"key": n.Key, "type": n.ValueType})
	if !n.Source {
		p["source"] = false
	}
	if n.Default != nil {
		p["default"] = n.Default
	}
	return p
}

// BlackboardSet writes its "value" input to a blackboard variable and passes it through.
type BlackboardSet struct {
	domain.Behavior `mapstructure:",squash"`
	Key             string `mapstructure:"key"`
	ValueType       string `mapstructure:"type"`
}

// NewBlackboardSet builds a blackboard.set node. The value type defaults to Float.
func NewBlackboardSet(params map[string]any) (domain.Node, error) {
	n := &BlackboardSet{ValueType: schema.Float}
	if _, err := build(n, params); err != nil {
		return nil, err
	}
	if n.Key == "" {
		return nil, fmt.Errorf("key is required")
	}
	return n, nil
}

func (n *BlackboardSet) Type() string { return TypeBlackboardSet }

func (n *BlackboardSet) Ports() []domain.PortSpec {
	return []domain.PortSpec{
		{Name: "value", Type: n.ValueType, Direction: domain.In, Required: true},
		{Name: "out", Type: n.ValueType, Direction: domain.Out},
	}
}

func (n *BlackboardSet) Calculate(c *domain.Calc) bool {
	v, ok := c.Input("value")
	if !ok || c.Blackboard() == nil {
		return false
	}
	if !c.SetOutput("out", v) {
		return false
	}
	// Blackboard writes are not staged, so they come after every failure point.
	c.Blackboard().Set(n.Key, v)
	return true
}

func (n *BlackboardSet) Params() map[string]any {
	return behaviorParams(n.Behavior, map[string]any{"key": n.Key, "type": n.ValueType})
}
