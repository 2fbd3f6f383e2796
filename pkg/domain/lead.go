package domain

import (
	"strings"
	"time"
)

// Interest tiers.
const (
	InterestHigh   = "High"
	InterestMedium = "Medium"
	InterestLow    = "Low"
)

// Pipeline stages derived from the interest tier.
const (
	StageNew        = "New"
	StageInterested = "Interested"
	StageDiscovery  = "Discovery"
	StageCold       = "Cold"
)

// NoteSeparator joins breadcrumbs in Lead.Notes.
const NoteSeparator = " | "

// NormalizeInterest maps free-form tier labels onto the canonical values.
// It returns "" for anything it does not recognise.
func NormalizeInterest(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return InterestHigh
	case "medium":
		return InterestMedium
	case "low":
		return InterestLow
	default:
		return ""
	}
}

// StageForInterest maps a tier onto the pipeline stage set after scoring.
func StageForInterest(interest string) string {
	switch interest {
	case InterestHigh:
		return StageInterested
	case InterestMedium:
		return StageDiscovery
	default:
		return StageCold
	}
}

// Lead is the prospect record enriched during a conversation.
type Lead struct {
	SessionID   string    `json:"sid"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	HasEmail    bool      `json:"has_email"`
	HasPhone    bool      `json:"has_phone"`
	Score       int       `json:"score"`
	Interest    string    `json:"interest,omitempty"`
	Category    string    `json:"category,omitempty"`
	Stage       string    `json:"stage"`
	Tags        []string  `json:"tags,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	LastMessage string    `json:"last_message,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewLead creates an empty lead in the New stage.
func NewLead(sessionID string, now time.Time) *Lead {
	return &Lead{
		SessionID: sessionID,
		Stage:     StageNew,
		LastSeen:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetEmail keeps HasEmail in sync with Email.
func (l *Lead) SetEmail(email string) {
	l.Email = strings.TrimSpace(email)
	l.HasEmail = l.Email != ""
}

// SetPhone keeps HasPhone in sync with Phone.
func (l *Lead) SetPhone(phone string) {
	l.Phone = strings.TrimSpace(phone)
	l.HasPhone = l.Phone != ""
}

// AppendNote adds a breadcrumb to Notes. Blank notes are ignored.
func (l *Lead) AppendNote(note string) {
	note = strings.Trim(strings.TrimSpace(note), "|")
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if l.Notes == "" {
		l.Notes = note
		return
	}
	l.Notes = l.Notes + NoteSeparator + note
}

// NoteEntries splits Notes back into its breadcrumbs.
func (l *Lead) NoteEntries() []string {
	if l.Notes == "" {
		return nil
	}
	return strings.Split(l.Notes, NoteSeparator)
}

// Clone returns a deep copy.
func (l *Lead) Clone() *Lead {
	if l == nil {
		return nil
	}
	out := *l
	out.Tags = append([]string(nil), l.Tags...)
	return &out
}

// LeadUpdate carries the fields to change; nil fields are left untouched.
type LeadUpdate struct {
	Name        *string
	Email       *string
	Phone       *string
	Score       *int
	Interest    *string
	Category    *string
	Stage       *string
	Tags        *[]string
	LastMessage *string
	LastSeen    *time.Time
	Note        string
}

// Apply merges u into l and stamps UpdatedAt.
func (l *Lead) Apply(u LeadUpdate, now time.Time) {
	if u.Name != nil {
		l.Name = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil {
		l.SetEmail(*u.Email)
	}
	if u.Phone != nil {
		l.SetPhone(*u.Phone)
	}
	if u.Score != nil {
		l.Score = ClampScore(*u.Score)
	}
	if u.Interest != nil {
		l.Interest = *u.Interest
	}
	if u.Category != nil {
		l.Category = *u.Category
	}
	if u.Stage != nil {
		l.Stage = *u.Stage
	}
	if u.Tags != nil {
		l.Tags = append([]string(nil), (*u.Tags)...)
	}
	if u.LastMessage != nil {
		l.LastMessage = *u.LastMessage
	}
	if u.LastSeen != nil {
		l.LastSeen = *u.LastSeen
	}
	l.AppendNote(u.Note)
	l.UpdatedAt = now
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Classification is the normalized output of a lead classifier.
// Score is nil when the classifier did not report one.
type Classification struct {
	Category string
	Score    *int
	Interest string
	Pitch    string
	Reasons  string
	Tags     []string
}
