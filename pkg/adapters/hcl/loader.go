// Package hcl loads graph documents written in HCL.
//
//	name = "calc"
//
//	node "x" {
//	  type   = "float.value"
//	  params = { value = 4 }
//	}
//
//	node "show" {
//	  type = "display"
//	}
//
//	connect {
//	  from = "x.out"
//	  to   = "show.in"
//	}
package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

type hclFile struct {
	Name        string        `hcl:"name,optional"`
	Description string        `hcl:"description,optional"`
	Nodes       []*hclNode    `hcl:"node,block"`
	Connections []*hclConnect `hcl:"connect,block"`
}

type hclNode struct {
	Name   string    `hcl:"name,label"`
	Type   string    `hcl:"type"`
	Params cty.Value `hcl:"params,optional"`
	Inputs cty.Value `hcl:"inputs,optional"`
}

type hclConnect struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// Loader implements ports.GraphLoader for a single .hcl file.
type Loader struct {
	Path string
}

// NewLoader creates a loader for the HCL file at path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// Load parses and decodes the file.
func (l *Loader) Load(ctx context.Context) (*document.Document, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph document: %w", err)
	}
	doc, err := Decode(data, l.Path)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(l.Path), filepath.Ext(l.Path))
	}
	return doc, nil
}

// Decode parses HCL source into a graph document. filename is used in diagnostics.
func Decode(src []byte, filename string) (*document.Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse HCL file %s: %w", document.ErrInvalidDocument, filename, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode HCL file %s: %w", document.ErrInvalidDocument, filename, diags)
	}

	doc := &document.Document{Name: parsed.Name, Description: parsed.Description}
	for _, n := range parsed.Nodes {
		params, err := toMap(n.Params)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q params: %w", document.ErrInvalidDocument, n.Name, err)
		}
		inputs, err := toMap(n.Inputs)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q inputs: %w", document.ErrInvalidDocument, n.Name, err)
		}
		doc.Nodes = append(doc.Nodes, document.Node{
			Name:   n.Name,
			Type:   n.Type,
			Params: params,
			Inputs: inputs,
		})
	}
	for _, c := range parsed.Connections {
		doc.Connections = append(doc.Connections, document.Connection{From: c.From, To: c.To})
	}
	return doc, nil
}

func toMap(v cty.Value) (map[string]any, error) {
	if v.IsNull() {
		return nil, nil
	}
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}
	m, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
