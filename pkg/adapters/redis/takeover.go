package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/leadflow/pkg/domain"
)

// Takeover implements ports.TakeoverGate with expiring Redis keys, so every
// replica sees the same claims.
type Takeover struct {
	client     *backend.Client
	prefix     string
	defaultTTL time.Duration
}

// NewTakeover creates a Redis backed takeover gate.
func NewTakeover(client *backend.Client, prefix string, defaultTTL time.Duration) *Takeover {
	return &Takeover{client: client, prefix: prefix, defaultTTL: defaultTTL}
}

func (t *Takeover) key(sessionID string) string {
	return t.prefix + "takeover:" + sessionID
}

type stringGetter interface {
	Get(ctx context.Context, key string) *backend.StringCmd
}

func (t *Takeover) current(ctx context.Context, getter stringGetter, key string) (domain.TakeoverClaim, bool, error) {
	var claim domain.TakeoverClaim
	raw, err := getter.Get(ctx, key).Bytes()
	if errors.Is(err, backend.Nil) {
		return claim, false, nil
	}
	if err != nil {
		return claim, false, fmt.Errorf("failed to read takeover claim: %w", err)
	}
	if err := json.Unmarshal(raw, &claim); err != nil {
		return claim, false, fmt.Errorf("corrupt takeover claim: %w", err)
	}
	return claim, true, nil
}

func (t *Takeover) Claim(ctx context.Context, sessionID, agentID string, ttl time.Duration) (domain.TakeoverClaim, error) {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	key := t.key(sessionID)
	now := time.Now()
	claim := domain.TakeoverClaim{
		SessionID: sessionID,
		AgentID:   agentID,
		ClaimedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(claim)
	if err != nil {
		return claim, err
	}

	var existing domain.TakeoverClaim
	err = t.client.Watch(ctx, func(tx *backend.Tx) error {
		cur, held, err := t.current(ctx, tx, key)
		if err != nil {
			return err
		}
		if held && cur.AgentID != agentID {
			existing = cur
			return domain.ErrSessionClaimed
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, domain.ErrSessionClaimed) {
		return existing, err
	}
	if err != nil {
		return claim, fmt.Errorf("failed to claim session: %w", err)
	}
	return claim, nil
}

func (t *Takeover) Release(ctx context.Context, sessionID, agentID string) error {
	key := t.key(sessionID)
	err := t.client.Watch(ctx, func(tx *backend.Tx) error {
		cur, held, err := t.current(ctx, tx, key)
		if err != nil || !held {
			return err
		}
		if agentID != "" && cur.AgentID != agentID {
			return domain.ErrSessionClaimed
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil && !errors.Is(err, domain.ErrSessionClaimed) {
		return fmt.Errorf("failed to release session: %w", err)
	}
	return err
}

func (t *Takeover) Active(ctx context.Context, sessionID string) (domain.TakeoverClaim, bool, error) {
	return t.current(ctx, t.client, t.key(sessionID))
}
