package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/nodegraph/pkg/adapters/file"
	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ports.RunSessionStoreContract(t, store)
}

func TestFileStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := file.NewStore(dir)

	state := domain.NewSessionState("s")
	state.Active[1] = "first"
	require.NoError(t, store.Save(ctx, "s", state))
	state.Active[1] = "second"
	require.NoError(t, store.Save(ctx, "s", state))

	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Active[1])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.NewStore(t.TempDir())
	err := store.Save(context.Background(), "../escape", domain.NewSessionState("x"))
	assert.Error(t, err)
	_, err = store.Load(context.Background(), "")
	assert.Error(t, err)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.NewStore(filepath.Join(t.TempDir(), "nope"))
	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestFileLoader(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graphs", "calc.yaml")
	loader := file.NewLoader(path, false)

	doc := &document.Document{Nodes: []document.Node{{Name: "v", Type: "float.value"}}}
	require.NoError(t, loader.Save(ctx, doc))

	loaded, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "calc", loaded.Name)
	assert.Len(t, loaded.Nodes, 1)

	var _ ports.GraphLoader = loader
	var _ ports.GraphSaver = loader
}
