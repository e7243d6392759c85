package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/document"
)

// Loader adapts a Loam repository, one document per node, to ports.GraphLoader.
type Loader struct {
	Repo *loam.TypedRepository[NodeMetadata]
	Name string
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[NodeMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at path.
// Strict mode makes every adapter (Markdown, JSON, YAML) report numbers as json.Number.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	l := New(loam.NewTypedRepository[NodeMetadata](repo))
	l.Name = filepath.Base(absPath)
	return l, nil
}

// Load assembles every document of the repository into a graph document.
// List only carries front matter, so each document is read again for its body.
// Nodes are sorted by name so that the result does not depend on file system order.
func (l *Loader) Load(ctx context.Context) (*document.Document, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	doc := &document.Document{Name: l.Name}
	for _, listed := range docs {
		d, err := l.Repo.Get(ctx, listed.ID)
		if err != nil {
			return nil, fmt.Errorf("loam get failed for %s: %w", listed.ID, err)
		}
		name := d.Data.Name
		if name == "" {
			name = trimExtension(d.ID)
		}
		if existingPath, ok := seen[name]; ok {
			return nil, fmt.Errorf("collision detected: node '%s' is defined in both '%s' and '%s'", name, existingPath, d.ID)
		}
		seen[name] = d.ID

		node, conns, err := buildNode(name, d.Data, d.Content)
		if err != nil {
			return nil, fmt.Errorf("node %s (%s): %w", name, d.ID, err)
		}
		doc.Nodes = append(doc.Nodes, node)
		doc.Connections = append(doc.Connections, conns...)
	}

	sort.Slice(doc.Nodes, func(i, j int) bool { return doc.Nodes[i].Name < doc.Nodes[j].Name })
	sort.SliceStable(doc.Connections, func(i, j int) bool { return doc.Connections[i].From < doc.Connections[j].From })
	return doc, nil
}

func buildNode(name string, meta NodeMetadata, content string) (document.Node, []document.Connection, error) {
	if meta.Type == "" {
		return document.Node{}, nil, fmt.Errorf("missing type")
	}
	node := document.Node{
		Name:   name,
		Type:   meta.Type,
		Params: copyMap(meta.Params),
		Inputs: copyMap(meta.Inputs),
	}

	// The document body is the text of dialog nodes.
	body := strings.TrimSpace(content)
	if body != "" && strings.HasPrefix(meta.Type, "dialog.") {
		if node.Params == nil {
			node.Params = make(map[string]any)
		}
		if _, ok := node.Params["text"]; !ok {
			node.Params["text"] = body
		}
	}

	var conns []document.Connection
	link := func(port, target string) {
		conns = append(conns, document.Connection{
			From: document.Ref(name, port),
			To:   document.Ref(target, dialog.PortPrev),
		})
	}

	if meta.Next != "" {
		link(dialog.PortNext, meta.Next)
	}
	if meta.Then != "" {
		link("true", meta.Then)
	}
	if meta.Else != "" {
		link("false", meta.Else)
	}
	if len(meta.Options) > 0 {
		texts := make([]string, 0, len(meta.Options))
		for i, opt := range meta.Options {
			texts = append(texts, opt.Text)
			if opt.To != "" {
				link(dialog.OptionPort(i), opt.To)
			}
		}
		if node.Params == nil {
			node.Params = make(map[string]any)
		}
		if _, ok := node.Params["options"]; !ok {
			node.Params["options"] = texts
		}
	}

	for _, c := range meta.Connect {
		if c.From == "" || c.To == "" {
			return document.Node{}, nil, fmt.Errorf("connect entries need both from and to")
		}
		conns = append(conns, document.Connection{From: document.Ref(name, c.From), To: c.To})
	}
	return node, conns, nil
}

func copyMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch reports the IDs of documents that change until ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
