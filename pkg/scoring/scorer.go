package scoring

import (
	"strconv"
	"strings"

	"github.com/aretw0/leadflow/pkg/domain"
)

// Signal keys that carry an already computed result instead of a rule input.
const (
	KeyScore    = "score"
	KeyInterest = "interest"
	KeyIntent   = "fit_intent"
)

const baseline = 50

// Lead categories reported alongside the tier.
const (
	CategoryFit      = "fit"
	CategoryCouldFit = "could_fit"
	CategoryNotFit   = "not_fit"
)

// Result is the outcome of scoring one signal set.
type Result struct {
	Score    int
	Interest string
	Category string
	Pitch    string
	Reasons  string
}

// Scorer evaluates collected signals against weighted rules.
type Scorer struct {
	cfg Config
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithConfig overlays cfg on the default weights and thresholds.
func WithConfig(cfg Config) Option {
	return func(s *Scorer) {
		s.cfg = s.cfg.Merge(cfg)
	}
}

// New creates a Scorer with the default rules.
func New(opts ...Option) *Scorer {
	s := &Scorer{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Thresholds returns the active tier thresholds.
func (s *Scorer) Thresholds() Thresholds {
	return s.cfg.Thresholds
}

// Score computes score, tier, pitch and reasons. It never fails: unknown keys
// and values are ignored.
func (s *Scorer) Score(signals map[string]string) Result {
	sig := Normalize(signals)

	if sig[KeyIntent] == "no" {
		return Result{
			Score:    0,
			Interest: domain.InterestLow,
			Category: CategoryNotFit,
			Pitch:    declinePitch,
			Reasons:  "intent: no",
		}
	}

	score := baseline
	var reasons []string
	for _, key := range s.cfg.keys() {
		val, ok := sig[key]
		if !ok || val == "" {
			continue
		}
		delta, ok := s.cfg.Weights[key][val]
		if !ok {
			continue
		}
		score += delta
		reasons = append(reasons, key+": "+val)
	}
	score = domain.ClampScore(score)

	var given *int
	if raw, ok := sig[KeyScore]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			given = &n
			reasons = append(reasons, "score: given")
		}
	}
	tier := domain.NormalizeInterest(sig[KeyInterest])
	if tier != "" {
		reasons = append(reasons, "interest: given")
	}

	if given != nil || tier != "" {
		score, tier = s.Reconcile(given, tier)
	} else {
		tier = s.Tier(score)
	}

	return Result{
		Score:    score,
		Interest: tier,
		Category: CategoryFor(tier),
		Pitch:    Pitch(tier, sig),
		Reasons:  strings.Join(reasons, "; "),
	}
}

// Tier derives the interest tier of a score.
func (s *Scorer) Tier(score int) string {
	switch {
	case score >= s.cfg.Thresholds.High:
		return domain.InterestHigh
	case score >= s.cfg.Thresholds.Medium:
		return domain.InterestMedium
	default:
		return domain.InterestLow
	}
}

// Reconcile fills in whichever of score and tier is missing.
// With only a tier, the score is the midpoint of that tier's band; with only a
// score, the tier comes from the thresholds; with both, both are kept as given.
// With neither, the baseline score is used.
func (s *Scorer) Reconcile(score *int, tier string) (int, string) {
	tier = domain.NormalizeInterest(tier)
	switch {
	case score != nil && tier != "":
		return domain.ClampScore(*score), tier
	case score != nil:
		v := domain.ClampScore(*score)
		return v, s.Tier(v)
	case tier != "":
		return s.midpoint(tier), tier
	default:
		return baseline, s.Tier(baseline)
	}
}

func (s *Scorer) midpoint(tier string) int {
	t := s.cfg.Thresholds
	switch tier {
	case domain.InterestHigh:
		return (t.High + 100) / 2
	case domain.InterestMedium:
		return (t.Medium + t.High) / 2
	default:
		return t.Medium / 2
	}
}

// CategoryFor maps a tier onto the lead category.
func CategoryFor(tier string) string {
	switch tier {
	case domain.InterestHigh:
		return CategoryFit
	case domain.InterestMedium:
		return CategoryCouldFit
	default:
		return CategoryNotFit
	}
}

// Normalize lower-cases values and maps clinic keys onto the legacy ones
// when the legacy key is absent.
func Normalize(signals map[string]string) map[string]string {
	out := make(map[string]string, len(signals)+3)
	for k, v := range signals {
		out[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}

	urgency := out["urgency"]
	if _, ok := out["when"]; !ok {
		switch urgency {
		case "p1":
			out["when"] = "this_week"
		case "p2":
			out["when"] = "next_week"
		case "p3":
			out["when"] = "later"
		}
	}
	if _, ok := out["motivation"]; !ok {
		switch urgency {
		case "p1":
			out["motivation"] = "high"
		case "p2":
			out["motivation"] = "medium"
		case "p3":
			out["motivation"] = "low"
		}
	}
	if _, ok := out["finance"]; !ok {
		switch out["payment"] {
		case "private":
			out["finance"] = "cash"
		case "zzzs":
			out["finance"] = "in_progress"
		}
	}
	return out
}
