package leads

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/leadflow/pkg/domain"
)

// MeetingScore is the score from which a lead counts as meeting-ready in the funnel.
const MeetingScore = 85

// MaxObjections bounds the ranking returned by Objections.
const MaxObjections = 5

// KPISet is the dashboard headline.
type KPISet struct {
	Visitors     int `json:"visitors"`
	Interactions int `json:"interactions"`
	Contacts     int `json:"contacts"`
	ActiveLeads  int `json:"activeLeads"`
}

// KPIs counts every lead as a visitor, leads that sent a message as interactions,
// leads with an email or phone as contacts and Interested/Discovery leads as active.
func KPIs(list []domain.Lead) KPISet {
	k := KPISet{Visitors: len(list)}
	for _, l := range list {
		if l.LastMessage != "" {
			k.Interactions++
		}
		if l.HasEmail || l.HasPhone {
			k.Contacts++
		}
		if l.Stage == domain.StageInterested || l.Stage == domain.StageDiscovery {
			k.ActiveLeads++
		}
	}
	return k
}

// FunnelStats holds integer percentages of all leads.
type FunnelStats struct {
	Awareness int `json:"awareness"`
	Interest  int `json:"interest"`
	Meeting   int `json:"meeting"`
	Close     int `json:"close"`
}

// Funnel computes the conversion funnel. Awareness is always 100.
func Funnel(list []domain.Lead) FunnelStats {
	total := len(list)
	if total == 0 {
		return FunnelStats{Awareness: 100}
	}

	var interested, meeting, closed int
	for _, l := range list {
		if l.Stage == domain.StageInterested {
			interested++
		}
		if l.Score >= MeetingScore {
			meeting++
		}
		notes := strings.ToLower(l.Notes)
		if strings.Contains(notes, "close") || strings.Contains(notes, "deal") {
			closed++
		}
	}

	pct := func(n int) int { return 100 * n / total }
	return FunnelStats{
		Awareness: 100,
		Interest:  pct(interested),
		Meeting:   pct(meeting),
		Close:     pct(closed),
	}
}

type objectionRule struct {
	label    string
	keywords []string
}

var objectionRules = []objectionRule{
	{"Price too high", []string{"price"}},
	{"Need partner approval", []string{"partner", "approval"}},
	{"Already working with agency", []string{"agency"}},
	{"Timing not right", []string{"timing", "when: later"}},
	{"Location does not suit", []string{"reason: location"}},
	{"Size does not fit", []string{"reason: size"}},
}

// Objections ranks objection labels found in lead notes, most frequent first,
// formatted as "label (count)". Each lead counts at most once per label.
func Objections(list []domain.Lead) []string {
	counts := make(map[string]int)
	for _, l := range list {
		if l.Notes == "" {
			continue
		}
		notes := strings.ToLower(l.Notes)
		for _, rule := range objectionRules {
			for _, kw := range rule.keywords {
				if strings.Contains(notes, kw) {
					counts[rule.label]++
					break
				}
			}
		}
	}

	type ranked struct {
		label string
		count int
		order int
	}
	out := make([]ranked, 0, len(counts))
	for i, rule := range objectionRules {
		if n := counts[rule.label]; n > 0 {
			out = append(out, ranked{rule.label, n, i})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].order < out[j].order
	})

	if len(out) > MaxObjections {
		out = out[:MaxObjections]
	}
	labels := make([]string, len(out))
	for i, r := range out {
		labels[i] = fmt.Sprintf("%s (%d)", r.label, r.count)
	}
	return labels
}
