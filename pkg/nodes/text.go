package nodes

import (
	"fmt"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/schema"
)

// Format renders a template with {{ name }} placeholders.
// Each name in Inputs becomes a String input; blackboard values fill the remaining placeholders.
type Format struct {
	domain.Behavior `mapstructure:",squash"`
	Template        string   `mapstructure:"template"`
	Inputs          []string `mapstructure:"inputs"`
}

// NewFormat builds a text.format node.
func NewFormat(params map[string]any) (domain.Node, error) {
	n := &Format{}
	if _, err := build(n, params); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, name := range n.Inputs {
		if name == "" || seen[name] {
			return nil, fmt.Errorf("invalid or duplicate input name %q", name)
		}
		seen[name] = true
	}
	return n, nil
}

func (n *Format) Type() string { return TypeFormat }

func (n *Format) Ports() []domain.PortSpec {
	specs := make([]domain.PortSpec, 0, len(n.Inputs)+1)
	for _, name := range n.Inputs {
		specs = append(specs, domain.PortSpec{Name: name, Type: schema.String, Direction: domain.In, Required: true})
	}
	return append(specs, domain.PortSpec{Name: "out", Type: schema.String, Direction: domain.Out})
}

func (n *Format) Calculate(c *domain.Calc) bool {
	values := make(map[string]string, len(n.Inputs))
	for _, name := range n.Inputs {
		s, ok := c.String(name)
		if !ok {
			return false
		}
		values[name] = s
	}
	out := domain.Interpolate(n.Template, func(name string) (any, bool) {
		if s, ok := values[name]; ok {
			return s, true
		}
		return c.Blackboard().Get(name)
	})
	return c.SetOutput("out", out)
}

func (n *Format) Params() map[string]any {
	p := behaviorParams(n.Behavior, map[string]any{"template": n.Template})
	if len(n.Inputs) > 0 {
		p["inputs"] = append([]string(nil), n.Inputs...)
	}
	return p
}
