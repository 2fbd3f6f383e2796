package ports

import (
	"context"
	"time"

	"github.com/aretw0/leadflow/pkg/domain"
)

// SessionStore defines the interface for persisting flow session state.
type SessionStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.SessionState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.SessionState, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns all active session IDs.
	List(ctx context.Context) ([]string, error)
}

// LeadRepository stores lead records keyed by session ID.
type LeadRepository interface {
	// Get returns domain.ErrLeadNotFound when the session has no lead yet.
	Get(ctx context.Context, sessionID string) (*domain.Lead, error)

	// Upsert creates the lead if needed and applies the update.
	Upsert(ctx context.Context, sessionID string, update domain.LeadUpdate) (*domain.Lead, error)

	// AppendNote adds a breadcrumb, creating the lead if needed.
	AppendNote(ctx context.Context, sessionID, note string) error

	// List returns leads ordered by score, then most recently updated.
	List(ctx context.Context) ([]domain.Lead, error)

	Delete(ctx context.Context, sessionID string) error
}

// TranscriptStore is the append-only chat history.
type TranscriptStore interface {
	// Append assigns ID, Timestamp (when zero) and Seq, and returns the stored message.
	// Empty session IDs or texts and unknown roles yield domain.ErrInvalidMessage.
	Append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error)

	// List returns a session's messages ordered by timestamp, ties by insertion order.
	List(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)

	// Sessions returns every session that has at least one message.
	Sessions(ctx context.Context) ([]string, error)

	Stats(ctx context.Context) (domain.TranscriptStats, error)
}

// TakeoverGate tracks which sessions are currently handled by a human agent.
type TakeoverGate interface {
	// Claim marks the session as handled by agentID for ttl. Claiming a session
	// held by another agent returns domain.ErrSessionClaimed.
	Claim(ctx context.Context, sessionID, agentID string, ttl time.Duration) (domain.TakeoverClaim, error)

	// Release clears the flag. An empty agentID releases regardless of owner.
	Release(ctx context.Context, sessionID, agentID string) error

	// Active returns the current claim, if any.
	Active(ctx context.Context, sessionID string) (domain.TakeoverClaim, bool, error)
}

// Classifier scores a lead from a free-text summary.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (domain.Classification, error)
}
