package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/aretw0/leadflow/pkg/domain"
)

// Takeover implements ports.TakeoverGate on an expiring in-process cache.
type Takeover struct {
	mu         sync.Mutex
	claims     *cache.Cache
	defaultTTL time.Duration
}

// NewTakeover creates a gate whose claims expire after defaultTTL unless
// Claim is given an explicit duration.
func NewTakeover(defaultTTL time.Duration) *Takeover {
	return &Takeover{
		claims:     cache.New(defaultTTL, time.Minute),
		defaultTTL: defaultTTL,
	}
}

func (t *Takeover) Claim(ctx context.Context, sessionID, agentID string, ttl time.Duration) (domain.TakeoverClaim, error) {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.claims.Get(sessionID); ok {
		if existing := v.(domain.TakeoverClaim); existing.AgentID != agentID {
			return existing, domain.ErrSessionClaimed
		}
	}

	now := time.Now()
	claim := domain.TakeoverClaim{
		SessionID: sessionID,
		AgentID:   agentID,
		ClaimedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	t.claims.Set(sessionID, claim, ttl)
	return claim, nil
}

func (t *Takeover) Release(ctx context.Context, sessionID, agentID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.claims.Get(sessionID)
	if !ok {
		return nil
	}
	if agentID != "" && v.(domain.TakeoverClaim).AgentID != agentID {
		return domain.ErrSessionClaimed
	}
	t.claims.Delete(sessionID)
	return nil
}

func (t *Takeover) Active(ctx context.Context, sessionID string) (domain.TakeoverClaim, bool, error) {
	v, ok := t.claims.Get(sessionID)
	if !ok {
		return domain.TakeoverClaim{}, false, nil
	}
	return v.(domain.TakeoverClaim), true, nil
}
