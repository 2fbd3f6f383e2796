// Package scoring turns the signals collected by choice nodes into a lead score,
// an interest tier and a follow-up pitch.
//
// Scoring starts from a baseline of 50, applies additive weights in a fixed order,
// clamps to [0,100] and derives the tier from thresholds. An explicit "no" intent
// short-circuits every other rule.
package scoring
