package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/nodegraph/pkg/adapters/memory"
	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/aretw0/nodegraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestMemoryLoader(t *testing.T) {
	ctx := context.Background()
	doc := &document.Document{
		Name:  "g",
		Nodes: []document.Node{{Name: "v", Type: "float.value", Params: map[string]any{"value": 1.0}}},
	}
	loader := memory.NewLoader(doc)

	loaded, err := loader.Load(ctx)
	require.NoError(t, err)
	loaded.Nodes[0].Params["value"] = 2.0
	assert.Equal(t, 1.0, doc.Nodes[0].Params["value"], "loaded documents are copies")

	require.NoError(t, loader.Save(ctx, loaded))
	again, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, again.Nodes[0].Params["value"])

	var _ ports.GraphLoader = loader
	var _ ports.GraphSaver = loader
}
