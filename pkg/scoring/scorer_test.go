package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/leadflow/pkg/domain"
)

func TestScore_Baseline(t *testing.T) {
	r := New().Score(nil)
	assert.Equal(t, 50, r.Score)
	assert.Equal(t, domain.InterestMedium, r.Interest)
	assert.Equal(t, "", r.Reasons)
}

func TestScore_HighUrgentLead(t *testing.T) {
	r := New().Score(map[string]string{
		"fit":        "good",
		"finance":    "cash",
		"when":       "this_week",
		"motivation": "high",
	})

	assert.Equal(t, 100, r.Score)
	assert.Equal(t, domain.InterestHigh, r.Interest)
	assert.Equal(t, "fit: good; finance: cash; when: this_week; motivation: high", r.Reasons)
	assert.Equal(t, urgentPitch, r.Pitch)
	assert.Equal(t, CategoryFit, r.Category)
}

func TestScore_HardOverride(t *testing.T) {
	r := New().Score(map[string]string{
		"fit":        "good",
		"finance":    "cash",
		"when":       "this_week",
		"motivation": "high",
		"fit_intent": "No",
	})

	assert.Equal(t, 0, r.Score)
	assert.Equal(t, domain.InterestLow, r.Interest)
	assert.Equal(t, "intent: no", r.Reasons)
	assert.Equal(t, declinePitch, r.Pitch)
}

func TestScore_ClampsBothWays(t *testing.T) {
	s := New()

	low := s.Score(map[string]string{
		"fit":        "low",
		"when":       "later",
		"motivation": "low",
		"reason":     "price_high",
		"med":        "anticoagulants",
	})
	assert.Equal(t, 0, low.Score)
	assert.Equal(t, domain.InterestLow, low.Interest)

	high := s.Score(map[string]string{
		"fit":        "good",
		"finance":    "cash",
		"when":       "this_week",
		"motivation": "high",
		"fit_intent": "yes",
		"service":    "emergency",
		"history":    "ours",
	})
	assert.Equal(t, 100, high.Score)
}

func TestScore_FinanceMonotonic(t *testing.T) {
	s := New()
	base := map[string]string{"fit": "close", "when": "later"}

	prev := -1
	for _, finance := range []string{"", "in_progress", "preapproved", "cash"} {
		sig := map[string]string{}
		for k, v := range base {
			sig[k] = v
		}
		if finance != "" {
			sig["finance"] = finance
		}
		r := s.Score(sig)
		assert.GreaterOrEqual(t, r.Score, prev, "finance=%q", finance)
		prev = r.Score
	}
}

func TestScore_IgnoresUnknown(t *testing.T) {
	r := New().Score(map[string]string{"colour": "blue", "fit": "excellent"})
	assert.Equal(t, 50, r.Score)
	assert.Empty(t, r.Reasons)
}

func TestScore_ClinicNormalization(t *testing.T) {
	r := New().Score(map[string]string{"urgency": "p1", "payment": "private"})

	// when=this_week(+15) motivation=high(+15) finance=cash(+20)
	assert.Equal(t, 100, r.Score)
	assert.Contains(t, r.Reasons, "when: this_week")
	assert.Contains(t, r.Reasons, "finance: cash")

	explicit := New().Score(map[string]string{"urgency": "p1", "when": "later"})
	assert.Contains(t, explicit.Reasons, "when: later")
}

func TestScore_GivenTier(t *testing.T) {
	s := New()

	onlyTier := s.Score(map[string]string{"interest": "High"})
	assert.Equal(t, 85, onlyTier.Score)
	assert.Equal(t, domain.InterestHigh, onlyTier.Interest)

	onlyScore := s.Score(map[string]string{"score": "42"})
	assert.Equal(t, 42, onlyScore.Score)
	assert.Equal(t, domain.InterestMedium, onlyScore.Interest)

	both := s.Score(map[string]string{"score": "10", "interest": "high"})
	assert.Equal(t, 10, both.Score)
	assert.Equal(t, domain.InterestHigh, both.Interest)
}

func TestReconcile(t *testing.T) {
	s := New()
	score := func(v int) *int { return &v }

	tests := []struct {
		name      string
		score     *int
		tier      string
		wantScore int
		wantTier  string
	}{
		{"medium midpoint", nil, "Medium", 55, domain.InterestMedium},
		{"low midpoint", nil, "low", 20, domain.InterestLow},
		{"score only", score(71), "", 71, domain.InterestHigh},
		{"score clamped", score(250), "", 100, domain.InterestHigh},
		{"neither", nil, "", 50, domain.InterestMedium},
		{"garbage tier", nil, "great", 50, domain.InterestMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotScore, gotTier := s.Reconcile(tt.score, tt.tier)
			assert.Equal(t, tt.wantScore, gotScore)
			assert.Equal(t, tt.wantTier, gotTier)
		})
	}
}

func TestWithConfig_OverridesThresholds(t *testing.T) {
	s := New(WithConfig(Config{
		Weights:    map[string]map[string]int{"fit": {"good": 5}, "budget": {"big": 40}},
		Thresholds: Thresholds{High: 90},
	}))

	r := s.Score(map[string]string{"fit": "good", "budget": "big"})
	assert.Equal(t, 95, r.Score)
	assert.Equal(t, domain.InterestHigh, r.Interest)
	assert.Equal(t, "fit: good; budget: big", r.Reasons)
	assert.Equal(t, 40, s.Thresholds().Medium)
}

func TestPitch_NeverLeaksScore(t *testing.T) {
	for _, tier := range []string{domain.InterestHigh, domain.InterestMedium, domain.InterestLow} {
		for _, sig := range []map[string]string{nil, {"when": "this_week"}, {"fit_intent": "no"}} {
			p := Pitch(tier, sig)
			assert.NotEmpty(t, p)
			assert.False(t, strings.ContainsAny(p, "0123456789"), "pitch %q contains digits", p)
			assert.NotContains(t, p, ":")
		}
	}
}
