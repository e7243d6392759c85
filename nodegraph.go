package nodegraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/nodegraph/internal/guard"
	"github.com/aretw0/nodegraph/internal/presentation/graph"
	"github.com/aretw0/nodegraph/internal/runtime"
	"github.com/aretw0/nodegraph/pkg/adapters/memory"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/document"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/nodes"
	"github.com/aretw0/nodegraph/pkg/ports"
	"github.com/aretw0/nodegraph/pkg/registry"
	"github.com/aretw0/nodegraph/pkg/schema"
	"github.com/aretw0/nodegraph/pkg/session"
)

type (
	// Report is the outcome of an evaluation.
	Report = runtime.Report
	// StuckNode is a node an evaluation could not calculate.
	StuckNode = runtime.StuckNode
	// StuckError wraps the stuck nodes of a Report as an error.
	StuckError = runtime.StuckError
)

// Result is what an evaluation did to the graph.
type Result struct {
	Report     *Report           `json:"report"`
	Calculated []string          `json:"calculated"`
	Diff       *domain.GraphDiff `json:"diff,omitempty"`
}

// Engine is the high-level entry point for the nodegraph library.
// It binds a loaded graph to an evaluator and a dialog session and serializes access to them.
type Engine struct {
	mu        sync.Mutex
	loader    ports.GraphLoader
	nodes     *registry.Registry
	types     *schema.Registry
	graph     *domain.Graph
	evaluator *runtime.Evaluator
	dialogs   *dialog.Session
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	owner     *guard.Owner
	board     *domain.Blackboard
	lastStuck []string
	Name      string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader sets where the graph document comes from.
func WithLoader(l ports.GraphLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithDocument serves a fixed document from memory.
func WithDocument(doc *document.Document) Option {
	return func(e *Engine) {
		e.loader = memory.NewLoader(doc)
	}
}

// WithRegistry replaces the node type registry. See DefaultRegistry.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.nodes = reg
	}
}

// WithTypes replaces the value type registry.
func WithTypes(types *schema.Registry) Option {
	return func(e *Engine) {
		e.types = types
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBlackboard sets the variables calculation nodes read and write.
// The engine creates an empty one by default.
func WithBlackboard(bb *domain.Blackboard) Option {
	return func(e *Engine) {
		e.board = bb
	}
}

// WithStrictOwnership binds the engine to the goroutine that calls New.
// Calls from any other goroutine fail.
func WithStrictOwnership() Option {
	return func(e *Engine) {
		e.owner = guard.New("nodegraph engine")
	}
}

// DefaultRegistry returns a registry with the built-in calculation and dialog nodes.
func DefaultRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	nodes.Register(reg)
	dialog.Register(reg)
	return reg
}

// New loads the graph and prepares the evaluator and dialog session.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.loader == nil {
		return nil, fmt.Errorf("a graph loader is required (use WithLoader or WithDocument)")
	}
	if eng.nodes == nil {
		eng.nodes = DefaultRegistry()
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if eng.board == nil {
		eng.board = domain.NewBlackboard()
	}
	if err := eng.owner.Check(); err != nil {
		return nil, err
	}

	doc, err := eng.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	if eng.Name == "" {
		eng.Name = doc.Name
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("graph", eng.Name)
	}

	eng.evaluator = runtime.New(
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	)
	if err := eng.install(doc); err != nil {
		return nil, err
	}
	return eng, nil
}

func (e *Engine) install(doc *document.Document) error {
	g, err := document.Build(doc, e.nodes, e.types)
	if err != nil {
		return err
	}
	sess, err := dialog.NewSession(g, e.DialogOptions()...)
	if err != nil {
		return fmt.Errorf("failed to prepare dialogs: %w", err)
	}
	e.graph = g
	e.dialogs = sess
	return nil
}

// enter locks the engine for one call.
func (e *Engine) enter() (func(), error) {
	if err := e.owner.Check(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	return e.mu.Unlock, nil
}

// Graph returns the live graph. Callers must not use it concurrently with the engine.
func (e *Engine) Graph() *domain.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph
}

// Document flattens the live graph, including stored input values.
func (e *Engine) Document() (*document.Document, error) {
	leave, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer leave()
	return document.FromGraph(e.graph, e.Name), nil
}

// Blackboard returns a copy of the evaluation variables.
func (e *Engine) Blackboard() (map[string]any, error) {
	leave, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer leave()
	return e.board.Snapshot(), nil
}

// Snapshot returns the calculated flags and outputs of every node.
func (e *Engine) Snapshot() (domain.GraphSnapshot, error) {
	leave, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer leave()
	return e.graph.Snapshot(), nil
}

// Evaluate runs TraverseAll over the whole graph.
func (e *Engine) Evaluate(ctx context.Context) (*Result, error) {
	leave, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer leave()

	before := e.graph.Snapshot()
	report := e.evaluator.TraverseAll(ctx, e.graph, e.board)
	return e.result(report, before), nil
}

// Recalculate re-evaluates the named node and everything downstream of it.
func (e *Engine) Recalculate(ctx context.Context, node string) (*Result, error) {
	leave, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer leave()
	return e.recalculate(ctx, node)
}

func (e *Engine) recalculate(ctx context.Context, node string) (*Result, error) {
	id, ok := e.graph.Lookup(node)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, node)
	}
	before := e.graph.Snapshot()
	report, err := e.evaluator.RecalculateFrom(ctx, e.graph, id, e.board)
	if err != nil {
		return nil, err
	}
	return e.result(report, before), nil
}

// SetInput stores a value on an input port and recalculates from its node.
func (e *Engine) SetInput(ctx context.Context, node, port string, value any) (*Result, error) {
	leave, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer leave()

	id, ok := e.graph.Lookup(node)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, node)
	}
	pid, err := e.graph.InputPort(id, port)
	if err != nil {
		return nil, err
	}
	if err := e.graph.SetInput(pid, value); err != nil {
		return nil, err
	}
	return e.recalculate(ctx, node)
}

func (e *Engine) result(report *Report, before domain.GraphSnapshot) *Result {
	res := &Result{
		Report:     report,
		Calculated: make([]string, 0, len(report.Calculated)),
		Diff:       domain.Diff(before, e.graph.Snapshot()),
	}
	for _, id := range report.Calculated {
		res.Calculated = append(res.Calculated, e.graph.Name(id))
	}
	e.lastStuck = e.lastStuck[:0]
	for _, n := range report.Stuck {
		e.lastStuck = append(e.lastStuck, n.Name)
	}
	return res
}

// Mermaid renders the graph as a Mermaid flowchart, marking calculated nodes,
// the nodes stuck in the last evaluation and the active nodes of the engine's own session.
func (e *Engine) Mermaid() (string, error) {
	leave, err := e.enter()
	if err != nil {
		return "", err
	}
	defer leave()

	overlay := &graph.GraphOverlay{Stuck: e.lastStuck}
	for _, id := range e.graph.Nodes() {
		if e.graph.Calculated(id) {
			overlay.Calculated = append(overlay.Calculated, e.graph.Name(id))
		}
	}
	for _, dialogID := range e.dialogs.ListDialogIDs() {
		if v := e.dialogs.View(dialogID); v.Node != "" {
			overlay.Current = append(overlay.Current, v.Node)
		}
	}
	return graph.GenerateMermaid(e.graph, overlay), nil
}

// DialogOptions returns the options the engine uses for dialog sessions.
func (e *Engine) DialogOptions() []dialog.Option {
	return []dialog.Option{
		dialog.WithLogger(e.logger),
		dialog.WithLifecycleHooks(e.hooks),
	}
}

// Dialogs lists the dialog ids of the graph.
func (e *Engine) Dialogs() ([]int, error) {
	leave, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer leave()
	return e.dialogs.ListDialogIDs(), nil
}

// Activate starts or resets a conversation of the engine's own session.
func (e *Engine) Activate(ctx context.Context, dialogID int, reset bool) (dialog.View, error) {
	leave, err := e.enter()
	if err != nil {
		return dialog.View{}, err
	}
	defer leave()
	if _, err := e.dialogs.Activate(ctx, dialogID, reset); err != nil {
		return dialog.View{}, err
	}
	return e.dialogs.View(dialogID), nil
}

// Input feeds a symbol to a conversation of the engine's own session.
func (e *Engine) Input(ctx context.Context, dialogID, symbol int) (dialog.View, error) {
	leave, err := e.enter()
	if err != nil {
		return dialog.View{}, err
	}
	defer leave()
	if _, err := e.dialogs.Input(ctx, dialogID, symbol); err != nil {
		return dialog.View{}, err
	}
	return e.dialogs.View(dialogID), nil
}

// View reports a conversation of the engine's own session without activating it.
func (e *Engine) View(dialogID int) (dialog.View, error) {
	leave, err := e.enter()
	if err != nil {
		return dialog.View{}, err
	}
	defer leave()
	return e.dialogs.View(dialogID), nil
}

// Conversation runs fn on the stored session sessionID, saving the result when fn succeeds.
func (e *Engine) Conversation(ctx context.Context, mgr *session.Manager, sessionID string, fn func(context.Context, *dialog.Session) error) error {
	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()
	return mgr.Resume(ctx, sessionID, e.graph, fn)
}

// Reload reads the graph again and rebuilds the engine around it.
// Conversations of the engine's own session carry over when their nodes still exist.
func (e *Engine) Reload(ctx context.Context) error {
	doc, err := e.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}

	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()

	saved := e.dialogs.Snapshot("")
	if err := e.install(doc); err != nil {
		return err
	}
	e.lastStuck = nil
	if err := e.dialogs.Restore(saved); err != nil {
		e.logger.Warn("Dialog state dropped on reload", "err", err)
	}
	e.logger.Info("Graph reloaded", "nodes", e.graph.Len())
	return nil
}

// Watch returns a channel that signals when the underlying graph changes.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Loader returns the underlying GraphLoader used by the engine.
func (e *Engine) Loader() ports.GraphLoader {
	return e.loader
}
