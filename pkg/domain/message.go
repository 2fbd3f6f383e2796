package domain

import "time"

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleStaff     Role = "staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleStaff:
		return true
	}
	return false
}

// ChatMessage is one append-only transcript entry.
// Entries are ordered by Timestamp, ties broken by Seq.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sid"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
	Seq       int64     `json:"seq"`
}

// TranscriptStats summarizes a transcript store.
type TranscriptStats struct {
	Sessions      int `json:"sessions"`
	Messages      int `json:"messages"`
	MalformedRows int `json:"malformed_rows"`
}

// TakeoverClaim records that a human agent owns a session.
type TakeoverClaim struct {
	SessionID string    `json:"sid"`
	AgentID   string    `json:"agent_id"`
	ClaimedAt time.Time `json:"claimed_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
