package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/nodegraph/internal/runtime"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/aretw0/nodegraph/pkg/nodes"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func testRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	nodes.Register(reg)
	dialog.Register(reg)
	return reg
}

func TestLoader_Dialog(t *testing.T) {
	dir := seed(t, map[string]string{
		"start.md": `---
type: dialog.start
params:
  dialog_id: 1
next: ask
---
Welcome to the **shop**.`,
		"ask.md": `---
type: dialog.choice
options:
  - text: Buy
    to: thanks
  - text: Leave
    to: bye
---
What do you want?`,
		"thanks.md": `---
type: dialog.end
---
Thank you!`,
		"bye.json": `{"type": "dialog.end"}`,
	})

	loader, err := Open(dir)
	require.NoError(t, err)

	doc, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), doc.Name)

	ask, ok := doc.Node("ask")
	require.True(t, ok)
	assert.Equal(t, "What do you want?", ask.Params["text"])
	assert.Equal(t, []string{"Buy", "Leave"}, ask.Params["options"])
	assert.Contains(t, doc.Connections, document.Connection{From: "ask.option1", To: "bye.prev"})
	assert.Contains(t, doc.Connections, document.Connection{From: "start.next", To: "ask.prev"})

	g, err := document.Build(doc, testRegistry(), nil)
	require.NoError(t, err)

	sess, err := dialog.NewSession(g)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = sess.Activate(ctx, 1, false)
	require.NoError(t, err)
	prompt, _ := sess.Prompt(1)
	assert.Equal(t, "Welcome to the **shop**.", prompt.Text)

	_, err = sess.Input(ctx, 1, dialog.Next)
	require.NoError(t, err)
	active, err := sess.Input(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "thanks", g.Name(active))
}

func TestLoader_Calculation(t *testing.T) {
	dir := seed(t, map[string]string{
		"x.yaml": `
type: float.value
params:
  value: 4
connect:
  - from: out
    to: double.a
`,
		"double.yaml": `
type: math.multiply
inputs:
  b: 2
connect:
  - from: out
    to: show.in
`,
		"show.yaml": "type: display\n",
	})

	loader, err := Open(dir)
	require.NoError(t, err)
	doc, err := loader.Load(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"double", "show", "x"}, names, "nodes are sorted by name")

	g, err := document.Build(doc, testRegistry(), nil)
	require.NoError(t, err)
	require.True(t, runtime.New().TraverseAll(context.Background(), g, nil).OK())

	id, _ := g.Lookup("show")
	n, _ := g.Node(id)
	v, _ := n.(*nodes.Display).Last()
	assert.Equal(t, 8.0, v)
}

func TestLoader_NamesFromPaths(t *testing.T) {
	dir := seed(t, map[string]string{
		"chapter1/intro.md": "---\ntype: dialog.message\nname: intro\n---\nHi",
		"chapter1/other.md": "---\ntype: dialog.message\n---\nYo",
	})

	loader, err := Open(dir)
	require.NoError(t, err)
	doc, err := loader.Load(context.Background())
	require.NoError(t, err)

	_, ok := doc.Node("intro")
	assert.True(t, ok, "explicit name wins")
	_, ok = doc.Node("chapter1/other")
	assert.True(t, ok, "otherwise the path without extension is used")
}

func TestLoader_DetectsCollisions(t *testing.T) {
	dir := seed(t, map[string]string{
		"foo.md":   "---\ntype: dialog.end\n---\nExplicit",
		"foo.json": `{"type": "dialog.end"}`,
	})

	loader, err := Open(dir)
	require.NoError(t, err)
	_, err = loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
	assert.Contains(t, err.Error(), "foo")
}

func TestLoader_MissingType(t *testing.T) {
	dir := seed(t, map[string]string{"orphan.md": "---\nname: orphan\n---\nNo type"})

	loader, err := Open(dir)
	require.NoError(t, err)
	_, err = loader.Load(context.Background())
	assert.ErrorContains(t, err, "missing type")
}
