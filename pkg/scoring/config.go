package scoring

import "sort"

// Thresholds are the minimum scores of the High and Medium tiers.
type Thresholds struct {
	High   int `yaml:"high" json:"high"`
	Medium int `yaml:"medium" json:"medium"`
}

// Config holds the rule weights and tier thresholds.
// Weights maps a signal key to the score delta of each recognised value.
type Config struct {
	Weights    map[string]map[string]int `yaml:"weights" json:"weights"`
	Thresholds Thresholds                `yaml:"thresholds" json:"thresholds"`
}

// ruleOrder fixes the evaluation order, and therefore the order of reasons.
var ruleOrder = []string{
	"fit", "finance", "when", "motivation", "reason", "fit_intent",
	"service", "time_pref", "med", "history",
}

// DefaultConfig returns the stock weights.
func DefaultConfig() Config {
	return Config{
		Weights: map[string]map[string]int{
			"fit":        {"good": 25, "close": 10, "low": -25},
			"finance":    {"cash": 20, "preapproved": 15, "in_progress": 5},
			"when":       {"this_week": 15, "next_week": 10, "weekend": 8, "later": -10},
			"motivation": {"high": 15, "medium": 5, "low": -10},
			"reason":     {"price_high": -25, "location": -15, "size": -15},
			"fit_intent": {"yes": 10, "maybe": 0},
			"service":    {"emergency": 10, "aesthetic": 5, "preventive": 0},
			"time_pref":  {"weekend": 3, "am": 2, "pm": 2, "flex": 1},
			"med":        {"anticoagulants": -5, "pregnancy": -3, "allergies": -2, "none": 0},
			"history":    {"ours": 5, "other": 0, "none": 0},
		},
		Thresholds: Thresholds{High: 70, Medium: 40},
	}
}

// Merge overlays o onto c. Zero thresholds and missing weights keep the values of c.
func (c Config) Merge(o Config) Config {
	out := Config{
		Weights:    make(map[string]map[string]int, len(c.Weights)),
		Thresholds: c.Thresholds,
	}
	for k, vals := range c.Weights {
		out.Weights[k] = make(map[string]int, len(vals))
		for v, w := range vals {
			out.Weights[k][v] = w
		}
	}
	for k, vals := range o.Weights {
		if out.Weights[k] == nil {
			out.Weights[k] = make(map[string]int, len(vals))
		}
		for v, w := range vals {
			out.Weights[k][v] = w
		}
	}
	if o.Thresholds.High > 0 {
		out.Thresholds.High = o.Thresholds.High
	}
	if o.Thresholds.Medium > 0 {
		out.Thresholds.Medium = o.Thresholds.Medium
	}
	return out
}

// keys returns the rule keys in evaluation order. Keys only known from
// configuration are evaluated after the built-in ones, alphabetically.
func (c Config) keys() []string {
	known := make(map[string]bool, len(ruleOrder))
	out := make([]string, 0, len(c.Weights))
	for _, k := range ruleOrder {
		known[k] = true
		if _, ok := c.Weights[k]; ok {
			out = append(out, k)
		}
	}
	var extra []string
	for k := range c.Weights {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
