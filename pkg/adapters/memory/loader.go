package memory

import (
	"context"
	"sync"

	"github.com/aretw0/nodegraph/pkg/document"
)

// Loader implements ports.GraphLoader and ports.GraphSaver over a document held in memory.
type Loader struct {
	mu  sync.RWMutex
	doc *document.Document
}

// NewLoader creates a loader serving doc.
func NewLoader(doc *document.Document) *Loader {
	return &Loader{doc: doc}
}

// Load returns a copy of the document, so callers can't edit the stored one.
func (l *Loader) Load(ctx context.Context) (*document.Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return clone(l.doc), nil
}

// Save replaces the stored document.
func (l *Loader) Save(ctx context.Context, doc *document.Document) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doc = clone(doc)
	return nil
}

func clone(doc *document.Document) *document.Document {
	if doc == nil {
		return &document.Document{}
	}
	out := *doc
	out.Nodes = make([]document.Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		n.Params = copyMap(n.Params)
		n.Inputs = copyMap(n.Inputs)
		out.Nodes[i] = n
	}
	out.Connections = append([]document.Connection(nil), doc.Connections...)
	return &out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
