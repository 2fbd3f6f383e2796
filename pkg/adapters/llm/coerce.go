package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/scoring"
)

const (
	defaultCategory      = "could_fit"
	defaultCompatibility = 50
)

// Coerce parses a model answer into a Classification. Code fences are stripped;
// a missing category defaults to could_fit; compatibility is clamped to [0,100];
// interest comes from the model when valid, otherwise from the scorer thresholds.
func Coerce(content string, scorer *scoring.Scorer) (domain.Classification, error) {
	raw := map[string]any{}
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: non-JSON answer: %v", domain.ErrClassifierFailed, err)
	}
	if scorer == nil {
		scorer = scoring.New()
	}

	out := domain.Classification{
		Category: strings.TrimSpace(stringField(raw, "category")),
		Interest: domain.NormalizeInterest(stringField(raw, "interest")),
		Reasons:  strings.TrimSpace(stringField(raw, "reasons")),
		Pitch:    strings.TrimSpace(stringField(raw, "pitch")),
		Tags:     tagsField(raw["tags"]),
	}
	if out.Category == "" {
		out.Category = defaultCategory
	}

	if comp, ok := intField(raw["compatibility"]); ok {
		comp = domain.ClampScore(comp)
		out.Score = &comp
	}
	if out.Interest == "" {
		comp := defaultCompatibility
		if out.Score != nil {
			comp = *out.Score
		} else {
			out.Score = &comp
		}
		out.Interest = scorer.Tier(comp)
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(v)
	}
}

// intField reads a compatibility value. The float is clamped to [0,100]
// before conversion so huge values cannot wrap around.
func intField(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Max(0, math.Min(100, f))), true
}

func tagsField(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		tags := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		if s := strings.TrimSpace(fmt.Sprint(t)); s != "" {
			return []string{s}
		}
		return nil
	}
}
