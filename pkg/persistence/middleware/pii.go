package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/ports"
)

// Mask replaces redacted text.
const Mask = "***"

// DefaultPIIPatterns match email addresses and phone-like digit runs.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\+?[0-9][0-9 ()\-.]{6,}[0-9]`,
}

type piiMiddleware struct {
	next     ports.TranscriptStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks transcript text matching the patterns
// before it is persisted. Lead records keep the captured contact details.
func NewPIIMiddleware(patternStrings []string) TranscriptMiddleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.TranscriptStore) ports.TranscriptStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	for _, p := range m.patterns {
		msg.Text = p.ReplaceAllString(msg.Text, Mask)
	}
	return m.next.Append(ctx, msg)
}

func (m *piiMiddleware) List(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	return m.next.List(ctx, sessionID)
}

func (m *piiMiddleware) Sessions(ctx context.Context) ([]string, error) {
	return m.next.Sessions(ctx)
}

func (m *piiMiddleware) Stats(ctx context.Context) (domain.TranscriptStats, error) {
	return m.next.Stats(ctx)
}
