package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/nodegraph/pkg/domain"
)

const (
	ScopeAll  = "all"
	ScopeFrom = "from"
)

// Evaluator runs the worklist algorithm that brings a graph to a fixed point.
// It holds no per-graph state and is safe to reuse across graphs.
type Evaluator struct {
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the structured logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Evaluator) {
		e.hooks = hooks
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// New creates an evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TraverseAll clears every calculated flag and evaluates the whole graph,
// starting from its input nodes.
func (e *Evaluator) TraverseAll(ctx context.Context, g *domain.Graph, bb *domain.Blackboard) *Report {
	nodes := g.Nodes()
	for _, id := range nodes {
		g.MarkCalculated(id, false)
	}

	var seed []domain.NodeID
	for _, id := range nodes {
		if g.IsInputNode(id) {
			seed = append(seed, id)
		}
	}

	return e.run(ctx, g, bb, ScopeAll, "", seed, nodes)
}

// RecalculateFrom clears the calculated flag of id and everything downstream of it,
// then evaluates starting from id. Nodes outside that set keep their state and outputs.
func (e *Evaluator) RecalculateFrom(ctx context.Context, g *domain.Graph, id domain.NodeID, bb *domain.Blackboard) (*Report, error) {
	if _, ok := g.Node(id); !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrNodeNotFound, id)
	}
	affected := g.ClearCalculation(id)
	return e.run(ctx, g, bb, ScopeFrom, g.Name(id), []domain.NodeID{id}, affected), nil
}

func (e *Evaluator) run(ctx context.Context, g *domain.Graph, bb *domain.Blackboard, scope, origin string, seed, affected []domain.NodeID) *Report {
	start := e.now()
	p := &pass{
		e:       e,
		ctx:     ctx,
		g:       g,
		bb:      bb,
		work:    newWorklist(seed),
		descent: make(map[domain.NodeID]bool),
		done:    make(map[domain.NodeID]bool),
		report:  &Report{Scope: scope, Origin: origin},
	}

	// Every successful calculation removes a node from the worklist, so a
	// graph of n nodes settles well within this bound. It only trips for
	// recursive nodes that keep re-entering each other.
	maxPasses := 2*g.Len() + 2

	for {
		p.report.Passes++
		progress := false
		for _, id := range p.work.snapshot() {
			if !p.work.has(id) {
				continue
			}
			if p.visit(id) {
				progress = true
			}
		}
		if !progress || p.work.empty() {
			break
		}
		if p.report.Passes >= maxPasses {
			e.logger.Warn("Evaluation stopped at pass limit", "passes", p.report.Passes, "pending", p.work.len())
			break
		}
	}

	p.collectStuck(affected)

	e.logger.Debug("Evaluation finished",
		"scope", scope,
		"origin", origin,
		"calculated", len(p.report.Calculated),
		"stuck", len(p.report.Stuck),
		"passes", p.report.Passes,
	)

	if e.hooks.OnEvaluation != nil {
		e.hooks.OnEvaluation(ctx, &domain.EvaluationEvent{
			EventBase:  domain.EventBase{Timestamp: e.now(), Type: domain.EventEvaluation},
			Scope:      scope,
			Origin:     origin,
			Calculated: len(p.report.Calculated),
			Stuck:      len(p.report.Stuck),
			Passes:     p.report.Passes,
			Duration:   e.now().Sub(start),
		})
	}
	return p.report
}

// pass carries the state of one evaluation call.
type pass struct {
	e       *Evaluator
	ctx     context.Context
	g       *domain.Graph
	bb      *domain.Blackboard
	work    *worklist
	descent map[domain.NodeID]bool
	done    map[domain.NodeID]bool
	report  *Report
}

// visit applies the three evaluation rules to one node and reports whether it made progress.
func (p *pass) visit(id domain.NodeID) bool {
	// A node already on the active descent path counts as handled.
	if p.descent[id] {
		return true
	}
	node, ok := p.g.Node(id)
	if !ok {
		p.work.remove(id)
		return false
	}

	if p.g.Calculated(id) && !node.AllowRecursion() {
		p.work.remove(id)
		return true
	}

	if p.g.DependenciesReady(id) && p.calculate(id, node) {
		p.g.MarkCalculated(id, true)
		p.work.remove(id)
		if !p.done[id] {
			p.done[id] = true
			p.report.Calculated = append(p.report.Calculated, id)
		}
		if node.ContinueCalculation() {
			p.descent[id] = true
			for _, child := range p.g.Downstream(id) {
				p.visit(child)
			}
			delete(p.descent, id)
		}
		return true
	}

	p.work.add(id)
	return false
}

// calculate runs the node and commits its staged outputs on success.
// A panicking node is treated as not ready.
func (p *pass) calculate(id domain.NodeID, node domain.Node) (ok bool) {
	calc := domain.NewCalc(p.g, id, p.bb)
	defer func() {
		if r := recover(); r != nil {
			p.e.logger.Error("Node panicked during calculation", "node", p.g.Name(id), "type", node.Type(), "panic", r)
			ok = false
		}
		if ok {
			calc.Commit()
		}
		p.e.logger.Debug("Calculated node", "node", p.g.Name(id), "type", node.Type(), "success", ok)
		if p.e.hooks.OnCalculate != nil {
			p.e.hooks.OnCalculate(p.ctx, &domain.NodeEvent{
				EventBase: domain.EventBase{Timestamp: p.e.now(), Type: domain.EventCalculate},
				NodeID:    id,
				Name:      p.g.Name(id),
				NodeType:  node.Type(),
				Success:   ok,
			})
		}
	}()
	return node.Calculate(calc)
}

// collectStuck lists every affected node that did not end up calculated,
// plus any node still waiting in the worklist.
func (p *pass) collectStuck(affected []domain.NodeID) {
	seen := make(map[domain.NodeID]bool)
	var ids []domain.NodeID
	for _, id := range affected {
		if !p.g.Calculated(id) && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range p.work.items {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		node, ok := p.g.Node(id)
		if !ok {
			continue
		}
		stuck := StuckNode{
			ID:     id,
			Name:   p.g.Name(id),
			Type:   node.Type(),
			Reason: p.reason(id),
		}
		p.report.Stuck = append(p.report.Stuck, stuck)
		p.e.logger.Warn("Node blocks calculation", "node", stuck.Name, "type", stuck.Type, "reason", stuck.Reason)
		if p.e.hooks.OnStuck != nil {
			p.e.hooks.OnStuck(p.ctx, &domain.NodeEvent{
				EventBase: domain.EventBase{Timestamp: p.e.now(), Type: domain.EventStuck},
				NodeID:    id,
				Name:      stuck.Name,
				NodeType:  stuck.Type,
				Reason:    stuck.Reason,
			})
		}
	}
}

func (p *pass) reason(id domain.NodeID) string {
	for _, up := range p.g.Upstream(id) {
		if !p.g.Calculated(up) {
			return fmt.Sprintf("waiting on upstream node %q", p.g.Name(up))
		}
	}
	for _, pid := range p.g.Inputs(id) {
		port, _ := p.g.Port(pid)
		if !port.Required {
			continue
		}
		if _, ok := p.g.Value(pid); !ok {
			return fmt.Sprintf("input %q has no connection and no value", port.Name)
		}
	}
	return "calculation reported not ready"
}
