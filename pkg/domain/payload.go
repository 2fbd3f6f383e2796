package domain

// ChatMode tells the client whether to show guided controls or a free text box.
type ChatMode string

const (
	ModeGuided ChatMode = "guided"
	ModeOpen   ChatMode = "open"
)

// ChoiceButton is the client-side rendering of a Choice.
type ChoiceButton struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// UI holds the client rendering hints of a payload.
type UI struct {
	Choices   []ChoiceButton `json:"choices,omitempty"`
	OpenInput bool           `json:"openInput,omitempty"`
	InputType string         `json:"inputType,omitempty"`
}

// RenderPayload is the result of one engine step.
type RenderPayload struct {
	Reply         string   `json:"reply"`
	UI            UI       `json:"ui"`
	ChatMode      ChatMode `json:"chatMode"`
	StoryComplete bool     `json:"storyComplete"`
}
