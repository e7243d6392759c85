package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCalculate     EventType = "calculate"
	EventStuck         EventType = "stuck"
	EventEvaluation    EventType = "evaluation"
	EventDialogAdvance EventType = "dialog_advance"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NodeEvent reports a calculation attempt or a stuck node.
type NodeEvent struct {
	EventBase
	NodeID   NodeID `json:"node_id"`
	Name     string `json:"name"`
	NodeType string `json:"node_type"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
}

// EvaluationEvent summarizes one TraverseAll or RecalculateFrom call.
type EvaluationEvent struct {
	EventBase
	Scope      string        `json:"scope"` // "all" or "from"
	Origin     string        `json:"origin,omitempty"`
	Calculated int           `json:"calculated"`
	Stuck      int           `json:"stuck"`
	Passes     int           `json:"passes"`
	Duration   time.Duration `json:"duration"`
}

// DialogEvent reports a dialog session moving between nodes.
type DialogEvent struct {
	EventBase
	DialogID int    `json:"dialog_id"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Symbol   int    `json:"symbol"`
	Finished bool   `json:"finished,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnCalculate     func(context.Context, *NodeEvent)
	OnStuck         func(context.Context, *NodeEvent)
	OnEvaluation    func(context.Context, *EvaluationEvent)
	OnDialogAdvance func(context.Context, *DialogEvent)
}

// Merge returns hooks that call h first and then each of others.
func (h LifecycleHooks) Merge(others ...LifecycleHooks) LifecycleHooks {
	all := append([]LifecycleHooks{h}, others...)
	return LifecycleHooks{
		OnCalculate: func(ctx context.Context, e *NodeEvent) {
			for _, x := range all {
				if x.OnCalculate != nil {
					x.OnCalculate(ctx, e)
				}
			}
		},
		OnStuck: func(ctx context.Context, e *NodeEvent) {
			for _, x := range all {
				if x.OnStuck != nil {
					x.OnStuck(ctx, e)
				}
			}
		},
		OnEvaluation: func(ctx context.Context, e *EvaluationEvent) {
			for _, x := range all {
				if x.OnEvaluation != nil {
					x.OnEvaluation(ctx, e)
				}
			}
		},
		OnDialogAdvance: func(ctx context.Context, e *DialogEvent) {
			for _, x := range all {
				if x.OnDialogAdvance != nil {
					x.OnDialogAdvance(ctx, e)
				}
			}
		},
	}
}
