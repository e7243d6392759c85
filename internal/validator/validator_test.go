package validator

import (
	"errors"
	"testing"

	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/dsl"
	"github.com/aretw0/nodegraph/pkg/nodes"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	nodes.Register(reg)
	dialog.Register(reg)
	return reg
}

func TestValidateDocument_Valid(t *testing.T) {
	b := dsl.New("ok")
	b.Value("x", 2).To("out", "neg.a")
	b.Add("neg", nodes.TypeSubtract).Param("a", 0).Param("b", 1).To("out", "show.in")
	b.Add("show", nodes.TypeDisplay)
	b.Start("hi", 1, "Hello").Go("bye")
	b.End("bye", "")

	res := ValidateDocument(b.Document(), testRegistry(), nil)
	assert.NoError(t, res.Err())
	assert.Empty(t, res.Warnings)
}

func TestValidateDocument_ReportsEverything(t *testing.T) {
	doc := &document.Document{
		Nodes: []document.Node{
			{Name: "x", Type: nodes.TypeValue},
			{Name: "ghost", Type: "vector.cross"},
			{Name: "neg", Type: nodes.TypeNot},
			{Name: "sum", Type: nodes.TypeAdd, Inputs: map[string]any{"c": 1.0}},
			{Name: "hi", Type: dialog.TypeStart, Params: map[string]any{"dialog_id": 1}},
			{Name: "again", Type: dialog.TypeStart, Params: map[string]any{"dialog_id": 1}},
			{Name: "orphan", Type: dialog.TypeMessage, Params: map[string]any{"text": "lost"}},
		},
		Connections: []document.Connection{
			{From: "x.out", To: "neg.in"}, // Float into Bool
			{From: "x.out", To: "nowhere.in"},
			{From: "bad", To: "sum.a"},
		},
	}

	res := ValidateDocument(doc, testRegistry(), nil)
	err := res.Err()
	require.Error(t, err)

	problems := schema.ValidationErrors(err)
	keys := make([]string, 0, len(problems))
	for _, p := range problems {
		var ve *schema.ValidationError
		require.True(t, errors.As(p, &ve))
		keys = append(keys, ve.Key)
	}
	assert.Contains(t, keys, "ghost")
	assert.Contains(t, keys, "sum")
	assert.Contains(t, keys, "x.out -> neg.in")
	assert.Contains(t, keys, "x.out -> nowhere.in")
	assert.Contains(t, keys, "bad -> sum.a")
	assert.Contains(t, keys, "dialog")
	assert.Contains(t, err.Error(), domain.ErrTypeMismatch.Error())
}

func TestValidateDocument_UnreachableDialogNode(t *testing.T) {
	b := dsl.New("talk")
	b.Start("hi", 1, "").Go("bye")
	b.End("bye", "")
	b.Say("orphan", "nobody hears this")

	res := ValidateDocument(b.Document(), testRegistry(), nil)
	problems := schema.ValidationErrors(res.Err())
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Error(), "orphan")
}

func TestValidateDocument_WarnsOnUnsetInputs(t *testing.T) {
	doc := &document.Document{Nodes: []document.Node{{Name: "not", Type: nodes.TypeNot}}}

	res := ValidateDocument(doc, testRegistry(), nil)
	assert.NoError(t, res.Err())
	assert.Equal(t, []string{`not: input "in" has no connection and no value`}, res.Warnings)
}
