package registry_test

import (
	"testing"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constant struct {
	domain.Behavior `mapstructure:",squash"`
	Value           float64 `mapstructure:"value"`
}

func (c *constant) Type() string                { return "test.constant" }
func (c *constant) Ports() []domain.PortSpec    { return nil }
func (c *constant) Calculate(*domain.Calc) bool { return true }

func newConstant(params map[string]any) (domain.Node, error) {
	n := &constant{}
	if err := registry.Decode(params, n); err != nil {
		return nil, err
	}
	return n, nil
}

func TestRegistry_New(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("test.constant", newConstant)

	node, err := reg.New("test.constant", map[string]any{"value": "2.5", "source": true})
	require.NoError(t, err)
	c := node.(*constant)
	assert.Equal(t, 2.5, c.Value)
	assert.True(t, c.IsInput())

	node, err = reg.New("test.constant", nil)
	require.NoError(t, err)
	assert.Zero(t, node.(*constant).Value)

	_, err = reg.New("test.constant", map[string]any{"valeu": 1})
	assert.Error(t, err, "unknown parameters are rejected")

	_, err = reg.New("missing", nil)
	assert.ErrorContains(t, err, "node type not found")
	assert.ErrorIs(t, err, domain.ErrUnknownType)
}

func TestRegistry_TypeMismatch(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("other.name", newConstant)

	_, err := reg.New("other.name", nil)
	assert.Error(t, err)
}

func TestRegistry_Names(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("b", newConstant)
	reg.Register("a", newConstant)

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.True(t, reg.Has("a"))
	assert.False(t, reg.Has("c"))
}
