package domain

import "time"

// SessionStatus tells whether a conversation can still progress.
type SessionStatus string

const (
	StatusActive   SessionStatus = "active"
	StatusTerminal SessionStatus = "terminal"
)

// Awaiting marks that the next inbound message answers the given open-input node.
// Keeping it as one optional value means "waiting" and "awaited node" can never drift apart.
type Awaiting struct {
	NodeID string `json:"node_id"`
}

// SessionState is the mutable position of one conversation in the flow.
type SessionState struct {
	SessionID   string            `json:"session_id"`
	CurrentNode string            `json:"current_node"`
	Awaiting    *Awaiting         `json:"awaiting,omitempty"`
	Signals     map[string]string `json:"signals,omitempty"`
	Status      SessionStatus     `json:"status"`
	History     []string          `json:"history,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewSessionState creates a state positioned at the start node.
func NewSessionState(sessionID, start string) *SessionState {
	return &SessionState{
		SessionID:   sessionID,
		CurrentNode: start,
		Signals:     make(map[string]string),
		Status:      StatusActive,
		History:     []string{start},
	}
}

// IsWaiting reports whether an open-input answer is expected.
func (s *SessionState) IsWaiting() bool {
	return s.Awaiting != nil
}

// Arm records that the next message answers nodeID.
func (s *SessionState) Arm(nodeID string) {
	s.Awaiting = &Awaiting{NodeID: nodeID}
}

// Disarm clears the pending answer and returns the node that was awaited.
func (s *SessionState) Disarm() (string, bool) {
	if s.Awaiting == nil {
		return "", false
	}
	id := s.Awaiting.NodeID
	s.Awaiting = nil
	return id, true
}

// MoveTo positions the session on nodeID, dropping any pending answer.
func (s *SessionState) MoveTo(nodeID string) {
	s.CurrentNode = nodeID
	s.Awaiting = nil
	s.History = append(s.History, nodeID)
}

// SetSignal merges a signal into the collected set.
func (s *SessionState) SetSignal(sig Signal) {
	if s.Signals == nil {
		s.Signals = make(map[string]string)
	}
	s.Signals[sig.Key] = sig.Value
}

// Clone returns a deep copy.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	if s.Awaiting != nil {
		a := *s.Awaiting
		out.Awaiting = &a
	}
	out.Signals = make(map[string]string, len(s.Signals))
	for k, v := range s.Signals {
		out.Signals[k] = v
	}
	out.History = append([]string(nil), s.History...)
	return &out
}
