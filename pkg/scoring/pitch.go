package scoring

import "github.com/aretw0/leadflow/pkg/domain"

const (
	declinePitch = "Understood. I can suggest some alternatives if you like."
	urgentPitch  = "Let's book the earliest available slot right away."
	highPitch    = "I suggest we schedule a short call to agree on the next steps."
	mediumPitch  = "I can send you more information or propose a time to talk."
	lowPitch     = "I can suggest alternatives or share a few more details."
)

// Pitch picks the user-facing follow-up for a tier. It is a pure function of
// the tier and the urgency signals and never mentions the score.
func Pitch(tier string, signals map[string]string) string {
	switch tier {
	case domain.InterestHigh:
		if signals["when"] == "this_week" || signals["urgency"] == "p1" || signals["service"] == "emergency" {
			return urgentPitch
		}
		return highPitch
	case domain.InterestMedium:
		return mediumPitch
	default:
		if signals[KeyIntent] == "no" {
			return declinePitch
		}
		return lowPitch
	}
}
