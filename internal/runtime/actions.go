package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/aretw0/leadflow/internal/logging"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/ports"
	"github.com/aretw0/leadflow/pkg/scoring"
)

// ScoreFailedReply is shown when the lead could not be scored.
const ScoreFailedReply = "Thank you! We could not finish the assessment right now, but a member of our team will follow up with you."

const emptyLeadText = "(no answers collected yet)"

// ErrNoClassifier is returned by Assess when no classifier is configured.
var ErrNoClassifier = errors.New("no classifier configured")

// FitHandler scores a lead. Collected signals are scored by rules; without
// signals the classifier is asked to judge the lead's notes.
type FitHandler struct {
	scorer     *scoring.Scorer
	classifier ports.Classifier
	logger     *slog.Logger
}

// NewFitHandler creates the handler. classifier may be nil, in which case
// leads without signals get the baseline rule score.
func NewFitHandler(scorer *scoring.Scorer, classifier ports.Classifier, logger *slog.Logger) *FitHandler {
	if scorer == nil {
		scorer = scoring.New()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FitHandler{scorer: scorer, classifier: classifier, logger: logger}
}

func (h *FitHandler) Handle(ctx context.Context, in domain.ActionInput) domain.ActionResult {
	var (
		res  scoring.Result
		tags []string
	)
	if len(in.Signals) > 0 || h.classifier == nil {
		res = h.scorer.Score(in.Signals)
	} else {
		var err error
		res, tags, err = h.Assess(ctx, leadPrompt(in.Lead))
		if err != nil {
			h.logger.Warn("Lead classification failed",
				"session_id", in.SessionID,
				"node_id", in.NodeID,
				"err", err,
			)
			return domain.ActionResult{
				Payload: CompletionPayload(ScoreFailedReply),
				Update:  domain.LeadUpdate{Note: "score: "},
				Err:     err,
			}
		}
	}

	pitch := safePitch(res)

	score := res.Score
	interest := res.Interest
	category := res.Category
	stage := domain.StageForInterest(res.Interest)
	update := domain.LeadUpdate{
		Score:    &score,
		Interest: &interest,
		Category: &category,
		Stage:    &stage,
		Note:     "score: " + res.Reasons,
	}
	if tags != nil {
		update.Tags = &tags
	}

	h.logger.Debug("Lead scored",
		"session_id", in.SessionID,
		"score", score,
		"interest", interest,
		"category", category,
	)
	return domain.ActionResult{
		Payload: CompletionPayload(pitch),
		Update:  update,
	}
}

// HasClassifier reports whether the handler can ask a classifier.
func (h *FitHandler) HasClassifier() bool {
	return h.classifier != nil
}

// Assess asks the classifier to judge prompt and reconciles the verdict with
// the score thresholds. The returned pitch is safe to show the visitor.
func (h *FitHandler) Assess(ctx context.Context, prompt string) (scoring.Result, []string, error) {
	if h.classifier == nil {
		return scoring.Result{}, nil, ErrNoClassifier
	}
	c, err := h.classifier.Classify(ctx, prompt)
	if err != nil {
		return scoring.Result{}, nil, err
	}
	res := h.fromClassification(c)
	res.Pitch = safePitch(res)
	return res, c.Tags, nil
}

// safePitch swaps a pitch that exposes scoring internals for the tier's canned one.
func safePitch(res scoring.Result) string {
	if leaks(res.Pitch, res.Reasons) {
		return scoring.Pitch(res.Interest, nil)
	}
	return res.Pitch
}

func (h *FitHandler) fromClassification(c domain.Classification) scoring.Result {
	score, tier := h.scorer.Reconcile(c.Score, c.Interest)
	category := c.Category
	if category == "" {
		category = scoring.CategoryFor(tier)
	}
	return scoring.Result{
		Score:    score,
		Interest: tier,
		Category: category,
		Pitch:    strings.TrimSpace(c.Pitch),
		Reasons:  c.Reasons,
	}
}

// leadPrompt summarizes what the lead told us so far.
func leadPrompt(lead *domain.Lead) string {
	if lead == nil {
		return fmt.Sprintf("Notes: %s\nLast: %s", emptyLeadText, emptyLeadText)
	}
	notes := lead.Notes
	if notes == "" {
		notes = emptyLeadText
	}
	last := lead.LastMessage
	if last == "" {
		last = emptyLeadText
	}
	return fmt.Sprintf("Notes: %s\nLast: %s", notes, last)
}

// leaks reports whether a pitch would expose internal scoring detail.
func leaks(pitch, reasons string) bool {
	if pitch == "" {
		return true
	}
	if strings.IndexFunc(pitch, unicode.IsDigit) >= 0 {
		return true
	}
	lower := strings.ToLower(pitch)
	if strings.Contains(lower, "score") {
		return true
	}
	return reasons != "" && strings.Contains(lower, strings.ToLower(reasons))
}
