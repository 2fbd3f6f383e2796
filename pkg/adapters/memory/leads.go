package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/leadflow/pkg/domain"
)

// Leads implements ports.LeadRepository in memory.
type Leads struct {
	mu   sync.RWMutex
	data map[string]*domain.Lead
}

// NewLeads creates an empty lead repository.
func NewLeads() *Leads {
	return &Leads{data: make(map[string]*domain.Lead)}
}

func (l *Leads) Get(ctx context.Context, sessionID string) (*domain.Lead, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lead, ok := l.data[sessionID]
	if !ok {
		return nil, domain.ErrLeadNotFound
	}
	return lead.Clone(), nil
}

func (l *Leads) Upsert(ctx context.Context, sessionID string, update domain.LeadUpdate) (*domain.Lead, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	lead, ok := l.data[sessionID]
	if !ok {
		lead = domain.NewLead(sessionID, now)
		l.data[sessionID] = lead
	}
	lead.Apply(update, now)
	return lead.Clone(), nil
}

func (l *Leads) AppendNote(ctx context.Context, sessionID, note string) error {
	_, err := l.Upsert(ctx, sessionID, domain.LeadUpdate{Note: note})
	return err
}

func (l *Leads) List(ctx context.Context) ([]domain.Lead, error) {
	l.mu.RLock()
	out := make([]domain.Lead, 0, len(l.data))
	for _, lead := range l.data {
		out = append(out, *lead.Clone())
	}
	l.mu.RUnlock()

	SortLeads(out)
	return out, nil
}

func (l *Leads) Delete(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.data, sessionID)
	return nil
}

// SortLeads orders by score, then most recently updated, then session id.
func SortLeads(leads []domain.Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		a, b := leads[i], leads[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.SessionID < b.SessionID
	})
}
