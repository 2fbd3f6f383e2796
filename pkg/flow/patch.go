package flow

import "github.com/aretw0/leadflow/pkg/domain"

// DefaultContactPrompt is asked by the start node when contact capture is enforced.
const DefaultContactPrompt = "Before we start, please leave your email or phone number so we can follow up."

// EnforceContactFirst returns a copy of def whose start node asks for contact
// details as a dual-contact open-input question. The successor is the start
// node's own next, else its first choice target, else the second declared node.
// No other node is touched and applying it twice yields the same definition.
func EnforceContactFirst(def *domain.Definition, prompt string) *domain.Definition {
	if def == nil {
		return nil
	}
	start, ok := def.Node(def.Start)
	if !ok {
		return def
	}
	if prompt == "" {
		prompt = DefaultContactPrompt
	}

	next := start.Next
	if next == "" {
		for _, c := range start.Choices {
			if c.Next != "" {
				next = c.Next
				break
			}
		}
	}
	if next == "" {
		for _, id := range def.Order {
			if id != start.ID {
				next = id
				break
			}
		}
	}

	out := def.Clone()
	out.Nodes[start.ID] = domain.FlowNode{
		ID:        start.ID,
		Kind:      domain.KindOpenInput,
		Prompts:   []string{prompt},
		InputType: domain.InputDualContact,
		Action:    domain.ActionStoreAnswer,
		Next:      next,
	}
	return out
}
