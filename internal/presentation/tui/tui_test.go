package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/nodegraph/internal/runtime"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/dsl"
	"github.com/aretw0/nodegraph/pkg/nodes"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMarkdown(t *testing.T) {
	md, err := ToMarkdown("<p>Hello <strong>there</strong></p>", dialog.FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, "Hello **there**", strings.TrimSpace(md))

	md, err = ToMarkdown("# Title", dialog.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# Title", md)
}

func TestPromptMarkdown(t *testing.T) {
	md, err := PromptMarkdown(dialog.Prompt{Text: "Pick one", Options: []string{"tea", "coffee"}})
	require.NoError(t, err)
	assert.Equal(t, "Pick one\n\n- [0] tea\n- [1] coffee\n", md)
}

func TestPrinter_Report(t *testing.T) {
	reg := registry.NewRegistry()
	nodes.Register(reg)
	b := dsl.New("calc")
	b.Value("x", 3).To("out", "div.a")
	b.Add("div", nodes.TypeDivide).Param("b", 0)
	g, err := b.Build(reg, nil)
	require.NoError(t, err)

	report := runtime.New().TraverseAll(context.Background(), g, nil)

	var buf bytes.Buffer
	NewPlainPrinter(&buf).Report(g, report)
	out := buf.String()

	assert.Contains(t, out, "all: 1 calculated, 1 stuck")
	assert.Contains(t, out, "✓ x out=3")
	assert.Contains(t, out, "✗ div (calculation reported not ready)")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
}
