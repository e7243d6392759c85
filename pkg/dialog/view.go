package dialog

import "github.com/aretw0/nodegraph/pkg/domain"

// View describes where a conversation stands, for display and transport.
type View struct {
	DialogID   int            `json:"dialog_id"`
	Started    bool           `json:"started"`
	Finished   bool           `json:"finished"`
	Node       string         `json:"node,omitempty"`
	Type       string         `json:"type,omitempty"`
	Prompt     *Prompt        `json:"prompt,omitempty"`
	Blackboard map[string]any `json:"blackboard,omitempty"`
}

// View reports the state of a conversation without activating it.
func (s *Session) View(dialogID int) View {
	v := View{DialogID: dialogID}
	cur, ok := s.active[dialogID]
	if !ok {
		return v
	}
	v.Started = true
	if bb := s.boards[dialogID]; bb != nil {
		v.Blackboard = bb.Snapshot()
	}
	if cur == domain.NoNode {
		v.Finished = true
		return v
	}
	v.Node = s.g.Name(cur)
	if n, ok := s.g.Node(cur); ok {
		v.Type = n.Type()
	}
	if p, ok := s.Prompt(dialogID); ok {
		v.Prompt = &p
	}
	return v
}
