package domain

import "time"

// SessionState is the serializable form of a set of dialog conversations.
// Active nodes are recorded by name, not by handle, so a state survives a graph reload.
type SessionState struct {
	SessionID string `json:"session_id"`

	// Active maps a dialog id to the active node name. An empty name marks a finished conversation.
	Active map[int]string `json:"active"`

	// Blackboards holds the per-conversation variables.
	Blackboards map[int]map[string]any `json:"blackboards,omitempty"`

	// Sealed carries an encrypted copy of the whole state. When set, Active and
	// Blackboards are empty and only a store middleware can read the content.
	Sealed string `json:"sealed,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionState creates an empty state for a session.
func NewSessionState(sessionID string) *SessionState {
	return &SessionState{
		SessionID:   sessionID,
		Active:      make(map[int]string),
		Blackboards: make(map[int]map[string]any),
	}
}

// Clone returns a deep copy of the dialog positions and a shallow copy of each blackboard.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := NewSessionState(s.SessionID)
	out.UpdatedAt = s.UpdatedAt
	out.Sealed = s.Sealed
	for k, v := range s.Active {
		out.Active[k] = v
	}
	for k, vars := range s.Blackboards {
		cp := make(map[string]any, len(vars))
		for key, val := range vars {
			cp[key] = val
		}
		out.Blackboards[k] = cp
	}
	return out
}
