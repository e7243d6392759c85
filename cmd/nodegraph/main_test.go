package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGraph = `
name: calc
nodes:
  - name: x
    type: float.value
    params:
      value: 4
  - name: half
    type: math.divide
    inputs:
      b: 2
  - name: greet
    type: dialog.start
    params:
      dialog_id: 7
      text: Hello
  - name: bye
    type: dialog.end
connections:
  - from: x.out
    to: half.a
  - from: greet.next
    to: bye.prev
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func graphFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testGraph), 0644))
	return path
}

func TestCommands(t *testing.T) {
	graph := graphFile(t)

	t.Run("version", func(t *testing.T) {
		out, err := execute(t, "version")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "nodegraph version "))
	})

	t.Run("validate", func(t *testing.T) {
		out, err := execute(t, "validate", graph)
		require.NoError(t, err)
		assert.Contains(t, out, "Graph is valid!")
	})

	t.Run("eval", func(t *testing.T) {
		out, err := execute(t, "eval", graph, "--plain", "--set", "x.in=10")
		require.NoError(t, err)
		assert.Contains(t, out, "half out=5")
	})

	t.Run("graph", func(t *testing.T) {
		out, err := execute(t, "graph", graph)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "graph TD"))
	})

	t.Run("dialog ls", func(t *testing.T) {
		out, err := execute(t, "dialog", "ls", graph)
		require.NoError(t, err)
		assert.Equal(t, "7\n", out)
	})

	t.Run("session ls", func(t *testing.T) {
		out, err := execute(t, "session", "ls")
		require.NoError(t, err)
		assert.Contains(t, out, "No active sessions found.")
	})

	t.Run("missing graph", func(t *testing.T) {
		_, err := execute(t, "eval", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
