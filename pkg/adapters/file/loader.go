package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/nodegraph/pkg/document"
)

// Loader implements ports.GraphLoader and ports.GraphSaver for a single YAML or JSON file.
type Loader struct {
	Path    string
	Lenient bool
}

// NewLoader creates a loader for the document at path.
func NewLoader(path string, lenient bool) *Loader {
	return &Loader{Path: path, Lenient: lenient}
}

// Load reads and decodes the document.
func (l *Loader) Load(ctx context.Context) (*document.Document, error) {
	return document.Load(l.Path, document.DecodeOptions{Lenient: l.Lenient})
}

// Save writes the document, creating parent directories as needed.
func (l *Loader) Save(ctx context.Context, doc *document.Document) error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
		return fmt.Errorf("failed to ensure graph directory: %w", err)
	}
	return document.Save(l.Path, doc)
}
