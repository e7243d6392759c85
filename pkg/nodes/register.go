package nodes

import (
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
)

// Type identifiers of the built-in nodes.
const (
	TypeValue         = "float.value"
	TypeAdd           = "math.add"
	TypeSubtract      = "math.subtract"
	TypeMultiply      = "math.multiply"
	TypeDivide        = "math.divide"
	TypeClamp         = "math.clamp"
	TypeLerp          = "math.lerp"
	TypeCompare       = "logic.compare"
	TypeNot           = "logic.not"
	TypeFormat        = "text.format"
	TypeBlackboardGet = "blackboard.get"
	TypeBlackboardSet = "blackboard.set"
	TypeDisplay       = "display"
)

// Register adds every built-in node type to reg.
func Register(reg *registry.Registry) {
	reg.Register(TypeValue, NewValue)
	for _, op := range []string{TypeAdd, TypeSubtract, TypeMultiply, TypeDivide} {
		reg.Register(op, binaryFactory(op))
	}
	reg.Register(TypeClamp, NewClamp)
	reg.Register(TypeLerp, NewLerp)
	reg.Register(TypeCompare, NewCompare)
	reg.Register(TypeNot, NewNot)
	reg.Register(TypeFormat, NewFormat)
	reg.Register(TypeBlackboardGet, NewBlackboardGet)
	reg.Register(TypeBlackboardSet, NewBlackboardSet)
	reg.Register(TypeDisplay, NewDisplay)
}

func build[T domain.Node](n T, params map[string]any) (domain.Node, error) {
	if err := registry.Decode(params, n); err != nil {
		return nil, err
	}
	return n, nil
}

// behaviorParams flattens the embedded behavior flags, omitting defaults.
func behaviorParams(b domain.Behavior, into map[string]any) map[string]any {
	if b.Source {
		into["source"] = true
	}
	if b.Recursive {
		into["recursive"] = true
	}
	if b.StopPropagation {
		into["stop_propagation"] = true
	}
	return into
}
