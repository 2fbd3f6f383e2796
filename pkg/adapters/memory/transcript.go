package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/leadflow/pkg/domain"
)

// Transcript implements ports.TranscriptStore in memory.
type Transcript struct {
	mu   sync.RWMutex
	seq  int64
	data map[string][]domain.ChatMessage
}

// NewTranscript creates an empty transcript store.
func NewTranscript() *Transcript {
	return &Transcript{data: make(map[string][]domain.ChatMessage)}
}

// Prepare validates msg and fills ID and Timestamp. Seq is left to the store.
func Prepare(msg domain.ChatMessage) (domain.ChatMessage, error) {
	msg.SessionID = strings.TrimSpace(msg.SessionID)
	msg.Text = strings.TrimSpace(msg.Text)
	if msg.SessionID == "" || msg.Text == "" || !msg.Role.Valid() {
		return msg, domain.ErrInvalidMessage
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg, nil
}

// SortMessages orders by timestamp, ties by sequence.
func SortMessages(msgs []domain.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		}
		return msgs[i].Seq < msgs[j].Seq
	})
}

func (t *Transcript) Append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	msg, err := Prepare(msg)
	if err != nil {
		return msg, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	msg.Seq = t.seq
	t.data[msg.SessionID] = append(t.data[msg.SessionID], msg)
	return msg, nil
}

func (t *Transcript) List(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	t.mu.RLock()
	out := append([]domain.ChatMessage(nil), t.data[sessionID]...)
	t.mu.RUnlock()

	SortMessages(out)
	return out, nil
}

func (t *Transcript) Sessions(ctx context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.data))
	for id := range t.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *Transcript) Stats(ctx context.Context) (domain.TranscriptStats, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := domain.TranscriptStats{Sessions: len(t.data)}
	for _, msgs := range t.data {
		stats.Messages += len(msgs)
	}
	return stats, nil
}
