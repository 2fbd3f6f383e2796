package leadflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/events"
	"github.com/aretw0/leadflow/pkg/scoring"
)

// Survey replies.
const (
	SurveyQualifiedReply = "Thank you! One of our agents will contact you shortly."
	SurveyThanksReply    = "Thank you for your answers! If you would like a quick human check, just ask for an agent."
)

// Budget bands offered by the mini-survey form.
const (
	BudgetUnder1k = "lt_1k"
	Budget1kTo3k  = "1k_3k"
	Budget3kTo10k = "3k_10k"
	BudgetOver10k = "gt_10k"
)

// SurveyAnswers is a submitted mini-survey form.
type SurveyAnswers struct {
	SessionID  string `json:"sid"`
	Industry   string `json:"industry"`
	Budget     string `json:"budget"`
	Experience string `json:"experience"`
}

// Qualified reports whether the answers warrant a call from an agent:
// a budget from 3k up, or any previous advertising experience.
func (a SurveyAnswers) Qualified() bool {
	return a.Budget == Budget3kTo10k || a.Budget == BudgetOver10k || strings.TrimSpace(a.Experience) != ""
}

// Summary joins the answers into one breadcrumb.
func (a SurveyAnswers) Summary() string {
	parts := make([]string, 0, 3)
	for _, kv := range [][2]string{
		{"industry", a.Industry},
		{"budget", a.Budget},
		{"experience", a.Experience},
	} {
		if v := strings.TrimSpace(kv[1]); v != "" {
			parts = append(parts, kv[0]+": "+v)
		}
	}
	return strings.Join(parts, domain.NoteSeparator)
}

// Survey records a mini-survey submission in the transcript and the lead's
// notes. With a classifier configured the answers are judged by it and the
// reply is its pitch; otherwise, or when classification fails, Qualified
// decides and the reply is a fixed thank-you. It does not move the flow.
func (b *Bot) Survey(ctx context.Context, answers SurveyAnswers) (Reply, error) {
	if err := checkSessionID(answers.SessionID); err != nil {
		return Reply{}, err
	}
	for _, field := range []*string{&answers.Industry, &answers.Budget, &answers.Experience} {
		clean, err := b.sanitizer.Clean(*field)
		if err != nil {
			return Reply{}, fmt.Errorf("%w: %w", domain.ErrInvalidMessage, err)
		}
		*field = clean
	}
	summary := answers.Summary()
	if summary == "" {
		return Reply{}, fmt.Errorf("%w: empty survey", domain.ErrInvalidMessage)
	}

	sid := answers.SessionID
	if err := b.record(ctx, sid, domain.RoleUser, summary); err != nil {
		return Reply{}, err
	}

	now := b.now()
	update := domain.LeadUpdate{Note: "survey: " + summary, LastSeen: &now}

	var (
		reply     string
		qualified bool
	)
	if res, ok := b.assessSurvey(ctx, answers); ok {
		reply = res.Pitch
		qualified = res.Interest == domain.InterestHigh || res.Interest == domain.InterestMedium
		score, interest, category := res.Score, res.Interest, res.Category
		stage := domain.StageForInterest(res.Interest)
		update.Score = &score
		update.Interest = &interest
		update.Category = &category
		update.Stage = &stage
	} else {
		qualified = answers.Qualified()
		reply = SurveyThanksReply
		if qualified {
			reply = SurveyQualifiedReply
			stage := domain.StageInterested
			update.Stage = &stage
		}
	}
	if _, err := b.leads.Upsert(ctx, sid, update); err != nil {
		return Reply{}, fmt.Errorf("failed to store survey for %s: %w", sid, err)
	}
	if qualified {
		b.bus.Publish(events.Event{Type: events.LeadScored, SessionID: sid, Payload: map[string]any{"survey": true, "qualified": true}})
	}
	if err := b.record(ctx, sid, domain.RoleAssistant, reply); err != nil {
		return Reply{}, err
	}
	return Reply{RenderPayload: domain.RenderPayload{
		Reply:         reply,
		UI:            domain.UI{OpenInput: true},
		ChatMode:      domain.ModeOpen,
		StoryComplete: true,
	}}, nil
}

// assessSurvey asks the classifier about the answers. ok is false when no
// classifier is configured or it failed.
func (b *Bot) assessSurvey(ctx context.Context, answers SurveyAnswers) (scoring.Result, bool) {
	if !b.fit.HasClassifier() {
		return scoring.Result{}, false
	}
	res, _, err := b.fit.Assess(ctx, surveyPrompt(answers))
	if err != nil {
		b.logger.Warn("Survey classification failed, using budget rule", "session_id", answers.SessionID, "err", err)
		return scoring.Result{}, false
	}
	return res, true
}

func surveyPrompt(a SurveyAnswers) string {
	unknown := func(v string) string {
		if v == "" {
			return "unknown"
		}
		return v
	}
	return fmt.Sprintf("Mini-survey answers.\nIndustry: %s\nBudget: %s (%s, %s, %s, %s)\nExperience: %s",
		unknown(a.Industry),
		unknown(a.Budget), BudgetUnder1k, Budget1kTo3k, Budget3kTo10k, BudgetOver10k,
		unknown(a.Experience),
	)
}
