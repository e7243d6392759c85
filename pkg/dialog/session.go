package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/nodegraph/internal/logging"
	"github.com/aretw0/nodegraph/pkg/domain"
)

// Session tracks the active node of every dialog in a graph.
// A conversation is created on first activation and removed only by End.
type Session struct {
	g      *domain.Graph
	starts map[int]domain.NodeID
	active map[int]domain.NodeID
	boards map[int]*domain.Blackboard

	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// NewSession indexes the start nodes of g.
// It fails with ErrDuplicateDialog when two start nodes share a dialog id.
func NewSession(g *domain.Graph, opts ...Option) (*Session, error) {
	s := &Session{
		g:      g,
		active: make(map[int]domain.NodeID),
		boards: make(map[int]*domain.Blackboard),
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Rescan(); err != nil {
		return nil, err
	}
	return s, nil
}

// Rescan rebuilds the start node index after the graph was edited.
// Conversations whose active node no longer exists are marked finished.
func (s *Session) Rescan() error {
	starts, err := StartNodes(s.g)
	if err != nil {
		return err
	}
	s.starts = starts
	for id, at := range s.active {
		if at == domain.NoNode {
			continue
		}
		if _, ok := s.g.Node(at); !ok {
			s.active[id] = domain.NoNode
		}
	}
	return nil
}

// StartNodes maps every dialog id in g to its start node.
func StartNodes(g *domain.Graph) (map[int]domain.NodeID, error) {
	starts := make(map[int]domain.NodeID)
	for _, id := range g.Nodes() {
		n, _ := g.Node(id)
		start, ok := n.(*Start)
		if !ok {
			continue
		}
		if other, dup := starts[start.DialogID]; dup {
			return nil, fmt.Errorf("%w: %d (nodes %q and %q)", domain.ErrDuplicateDialog, start.DialogID, g.Name(other), g.Name(id))
		}
		starts[start.DialogID] = id
	}
	return starts, nil
}

// Graph returns the graph the session runs on.
func (s *Session) Graph() *domain.Graph { return s.g }

// HasDialog reports whether the graph has a start node for dialogID.
func (s *Session) HasDialog(dialogID int) bool {
	_, ok := s.starts[dialogID]
	return ok
}

// ListDialogIDs returns the dialog ids of the graph in ascending order.
func (s *Session) ListDialogIDs() []int {
	ids := make([]int, 0, len(s.starts))
	for id := range s.starts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Activate starts the conversation at its start node if it has none.
// With resetToStart, an existing conversation that is elsewhere goes back to the start
// with a fresh blackboard.
func (s *Session) Activate(ctx context.Context, dialogID int, resetToStart bool) (domain.NodeID, error) {
	start, ok := s.starts[dialogID]
	if !ok {
		s.logger.Warn("Unknown dialog", "dialog_id", dialogID)
		return domain.NoNode, fmt.Errorf("%w: %d", domain.ErrUnknownDialog, dialogID)
	}

	cur, exists := s.active[dialogID]
	switch {
	case !exists:
		s.active[dialogID] = start
		s.boards[dialogID] = domain.NewBlackboard()
		s.emit(ctx, dialogID, domain.NoNode, start, Next)
	case resetToStart && cur != start:
		s.active[dialogID] = start
		s.boards[dialogID] = domain.NewBlackboard()
		s.emit(ctx, dialogID, cur, start, Next)
	}
	return s.active[dialogID], nil
}

// GetActive returns the active node, activating the dialog without reset if needed.
// A finished conversation reports NoNode.
func (s *Session) GetActive(ctx context.Context, dialogID int) (domain.NodeID, error) {
	return s.Activate(ctx, dialogID, false)
}

// Input feeds a symbol to the active node and moves the conversation.
// Without an active conversation it fails with ErrNoActiveSession and changes nothing.
func (s *Session) Input(ctx context.Context, dialogID int, symbol int) (domain.NodeID, error) {
	if !s.HasDialog(dialogID) {
		return domain.NoNode, fmt.Errorf("%w: %d", domain.ErrUnknownDialog, dialogID)
	}
	cur, exists := s.active[dialogID]
	if !exists || cur == domain.NoNode {
		return domain.NoNode, fmt.Errorf("%w: dialog %d", domain.ErrNoActiveSession, dialogID)
	}

	step := &Step{Graph: s.g, Self: cur, DialogID: dialogID, Blackboard: s.boards[dialogID]}
	next := domain.NoNode
	if node, ok := s.dialogNode(cur); ok {
		if id, ok := node.Input(step, symbol); ok {
			next = s.passAhead(step.At(id), symbol)
		}
	}

	s.active[dialogID] = next
	s.emit(ctx, dialogID, cur, next, symbol)
	if next == domain.NoNode {
		s.logger.Debug("Conversation finished", "dialog_id", dialogID, "last", s.g.Name(cur))
	}
	return next, nil
}

// passAhead lets auto-advancing nodes forward until one stays.
func (s *Session) passAhead(step *Step, symbol int) domain.NodeID {
	for hops := 0; hops <= s.g.Len(); hops++ {
		node, ok := s.dialogNode(step.Self)
		if !ok {
			return domain.NoNode
		}
		next, ok := node.PassAhead(step, symbol)
		if !ok {
			return domain.NoNode
		}
		if next == step.Self {
			return next
		}
		step = step.At(next)
	}
	s.logger.Warn("Dialog did not settle", "dialog_id", step.DialogID, "node", s.g.Name(step.Self))
	return step.Self
}

func (s *Session) dialogNode(id domain.NodeID) (Node, bool) {
	n, ok := s.g.Node(id)
	if !ok {
		return nil, false
	}
	dn, ok := n.(Node)
	if !ok {
		s.logger.Warn("Transition leads to a non-dialog node", "node", s.g.Name(id), "type", n.Type())
	}
	return dn, ok
}

// End removes the conversation and its blackboard.
func (s *Session) End(dialogID int) {
	delete(s.active, dialogID)
	delete(s.boards, dialogID)
}

// Finished reports whether the conversation exists and has run past its last node.
func (s *Session) Finished(dialogID int) bool {
	cur, ok := s.active[dialogID]
	return ok && cur == domain.NoNode
}

// Blackboard returns the variables of a conversation, or nil when it has none.
func (s *Session) Blackboard(dialogID int) *domain.Blackboard {
	return s.boards[dialogID]
}

// Prompt returns what the active node of a conversation presents.
func (s *Session) Prompt(dialogID int) (Prompt, bool) {
	cur, ok := s.active[dialogID]
	if !ok || cur == domain.NoNode {
		return Prompt{}, false
	}
	n, _ := s.g.Node(cur)
	p, ok := n.(Prompter)
	if !ok {
		return Prompt{}, true
	}
	return p.Prompt(&Step{Graph: s.g, Self: cur, DialogID: dialogID, Blackboard: s.boards[dialogID]}), true
}

// Snapshot flattens the session into a serializable state.
func (s *Session) Snapshot(sessionID string) *domain.SessionState {
	state := domain.NewSessionState(sessionID)
	state.UpdatedAt = s.now()
	for id, cur := range s.active {
		name := ""
		if cur != domain.NoNode {
			name = s.g.Name(cur)
		}
		state.Active[id] = name
		if bb := s.boards[id]; bb != nil {
			state.Blackboards[id] = bb.Snapshot()
		}
	}
	return state
}

// Restore replaces all conversations with the ones recorded in state.
// Nothing changes if state refers to unknown dialogs or nodes.
func (s *Session) Restore(state *domain.SessionState) error {
	active := make(map[int]domain.NodeID, len(state.Active))
	boards := make(map[int]*domain.Blackboard, len(state.Active))
	for id, name := range state.Active {
		if !s.HasDialog(id) {
			return fmt.Errorf("%w: %d", domain.ErrUnknownDialog, id)
		}
		at := domain.NoNode
		if name != "" {
			var ok bool
			if at, ok = s.g.Lookup(name); !ok {
				return fmt.Errorf("%w: %s (dialog %d)", domain.ErrNodeNotFound, name, id)
			}
		}
		active[id] = at
		boards[id] = domain.BlackboardFrom(state.Blackboards[id])
	}
	s.active = active
	s.boards = boards
	return nil
}

func (s *Session) emit(ctx context.Context, dialogID int, from, to domain.NodeID, symbol int) {
	s.logger.Debug("Dialog advanced",
		"dialog_id", dialogID,
		"from", s.name(from),
		"to", s.name(to),
		"symbol", SymbolName(symbol),
	)
	if s.hooks.OnDialogAdvance == nil {
		return
	}
	s.hooks.OnDialogAdvance(ctx, &domain.DialogEvent{
		EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventDialogAdvance},
		DialogID:  dialogID,
		From:      s.name(from),
		To:        s.name(to),
		Symbol:    symbol,
		Finished:  to == domain.NoNode,
	})
}

func (s *Session) name(id domain.NodeID) string {
	if id == domain.NoNode {
		return ""
	}
	return s.g.Name(id)
}
