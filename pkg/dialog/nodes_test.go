package dialog_test

import (
	"testing"

	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialogNodes_ParamsRoundTrip(t *testing.T) {
	reg := registry.NewRegistry()
	dialog.Register(reg)

	cases := map[string]map[string]any{
		dialog.TypeStart:   {"dialog_id": 4, "text": "Hi"},
		dialog.TypeMessage: {"text": "<b>bold</b>", "format": "html", "speaker": "Guard"},
		dialog.TypeChoice:  {"text": "?", "options": []string{"yes", "no"}},
		dialog.TypeBranch:  {"key": "k", "op": "==", "value": "v"},
		dialog.TypeSet:     {"key": "k", "value": 1},
		dialog.TypeEnd:     {"text": "bye"},
	}
	for typ, params := range cases {
		t.Run(typ, func(t *testing.T) {
			n, err := reg.New(typ, params)
			require.NoError(t, err)
			again, err := reg.New(typ, n.(domain.Persistable).Params())
			require.NoError(t, err)
			assert.Equal(t, n, again)
		})
	}
}

func TestDialogNodes_InvalidParams(t *testing.T) {
	reg := registry.NewRegistry()
	dialog.Register(reg)

	tests := []struct {
		typ    string
		params map[string]any
	}{
		{dialog.TypeChoice, nil},
		{dialog.TypeBranch, map[string]any{"key": "k", "op": "~="}},
		{dialog.TypeBranch, nil},
		{dialog.TypeSet, map[string]any{"value": 1}},
		{dialog.TypeMessage, map[string]any{"format": "rtf"}},
	}
	for _, tt := range tests {
		_, err := reg.New(tt.typ, tt.params)
		assert.Error(t, err, "%s %v", tt.typ, tt.params)
	}
}

func TestChoice_Ports(t *testing.T) {
	n, err := dialog.NewChoice(map[string]any{"options": []string{"a", "b", "c"}})
	require.NoError(t, err)

	var names []string
	for _, p := range n.Ports() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"prev", "option0", "option1", "option2"}, names)
}
