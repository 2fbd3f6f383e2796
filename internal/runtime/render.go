package runtime

import "github.com/aretw0/leadflow/pkg/domain"

// Fixed replies for turns that cannot be rendered from the flow.
const (
	FaultReply    = "Sorry, something went wrong on our side. Please try again later or ask for a human agent."
	FinishedReply = "Thanks! Our team will be in touch shortly."
)

// render builds the payload of a node. It never changes session state.
func (e *Engine) render(node domain.FlowNode) domain.RenderPayload {
	p := domain.RenderPayload{
		Reply:    e.pickPrompt(node.Prompts),
		ChatMode: domain.ModeGuided,
	}
	switch node.Kind {
	case domain.KindChoice:
		p.UI.Choices = make([]domain.ChoiceButton, 0, len(node.Choices))
		for _, c := range node.Choices {
			p.UI.Choices = append(p.UI.Choices, domain.ChoiceButton{Title: c.Title, Payload: c.Payload})
		}
	case domain.KindOpenInput:
		p.UI.OpenInput = true
		p.UI.InputType = node.InputType
		if p.UI.InputType == "" {
			p.UI.InputType = domain.InputSingle
		}
		p.ChatMode = domain.ModeOpen
	case domain.KindPlain, domain.KindAction:
		p.StoryComplete = node.Next == ""
	}
	return p
}

func (e *Engine) pickPrompt(prompts []string) string {
	switch len(prompts) {
	case 0:
		return ""
	case 1:
		return prompts[0]
	}
	i := e.pick(len(prompts))
	if i < 0 || i >= len(prompts) {
		i = 0
	}
	return prompts[i]
}

func faultPayload() domain.RenderPayload {
	return domain.RenderPayload{
		Reply:         FaultReply,
		ChatMode:      domain.ModeGuided,
		StoryComplete: true,
	}
}

// finishedPayload answers messages that arrive after a scoring action closed the story.
func finishedPayload() domain.RenderPayload {
	return CompletionPayload(FinishedReply)
}

// CompletionPayload is what an action returns when it ends the scripted part of
// the conversation and hands over to free chat.
func CompletionPayload(reply string) domain.RenderPayload {
	return domain.RenderPayload{
		Reply:         reply,
		UI:            domain.UI{OpenInput: true},
		ChatMode:      domain.ModeOpen,
		StoryComplete: true,
	}
}
