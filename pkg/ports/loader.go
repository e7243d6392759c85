package ports

import (
	"context"

	"github.com/aretw0/nodegraph/pkg/document"
)

// GraphLoader defines how the engine retrieves a graph definition.
// This allows the storage layer (files, HCL, Loam, memory) to be decoupled.
type GraphLoader interface {
	// Load returns the graph document.
	Load(ctx context.Context) (*document.Document, error)
}

// GraphSaver is implemented by loaders that can write a document back.
type GraphSaver interface {
	Save(ctx context.Context, doc *document.Document) error
}

// Watchable is implemented by loaders that can report changes to the graph source.
// Each value sent on the channel names the changed entry.
type Watchable interface {
	Watch(ctx context.Context) (<-chan string, error)
}
