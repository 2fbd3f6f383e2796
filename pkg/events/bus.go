// Package events fans chat activity out to dashboard listeners.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/leadflow/internal/logging"
)

// Type names an event.
type Type string

const (
	MessageCreated  Type = "message.created"
	SessionClaimed  Type = "session.claimed"
	SessionReleased Type = "session.released"
	BotPaused       Type = "bot.paused"
	BotResumed      Type = "bot.resumed"
	LeadScored      Type = "lead.scored"
)

// AllSessions subscribes to the events of every session.
const AllSessions = "*"

// DefaultBuffer is the per-subscriber channel size.
const DefaultBuffer = 16

// Event is one notification.
type Event struct {
	Type      Type      `json:"type"`
	SessionID string    `json:"sid"`
	Timestamp time.Time `json:"ts"`
	Payload   any       `json:"payload,omitempty"`
}

// Bus is an in-process pub/sub keyed by session id.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	buffer      int
	logger      *slog.Logger
}

// Option configures the Bus.
type Option func(*Bus)

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates a bus with DefaultBuffer slots per subscriber and a silent logger.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[string]map[chan Event]struct{}),
		buffer:      DefaultBuffer,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a listener for sessionID (or AllSessions).
// The returned cancel func closes the channel and is safe to call twice.
func (b *Bus) Subscribe(sessionID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if _, ok := b.subscribers[sessionID]; !ok {
		b.subscribers[sessionID] = make(map[chan Event]struct{})
	}
	b.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(b.subscribers, sessionID)
				}
			}
		})
	}
}

// Publish delivers ev to the session's listeners and to AllSessions listeners.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	b.deliver(ev.SessionID, ev)
	if ev.SessionID != AllSessions {
		b.deliver(AllSessions, ev)
	}
}

func (b *Bus) deliver(key string, ev Event) {
	for ch := range b.subscribers[key] {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("Event subscriber buffer full, dropping event", "session_id", ev.SessionID, "type", ev.Type)
		}
	}
}

// Subscribers returns the listener count for sessionID.
func (b *Bus) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[sessionID])
}
