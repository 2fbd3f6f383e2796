package domain

// ActionInput is the snapshot an action handler works on. It is taken under the
// session lock; the handler itself runs without it.
type ActionInput struct {
	SessionID string
	NodeID    string
	Action    string
	Lead      *Lead
	Signals   map[string]string
}

// ActionResult is what a handler hands back to the engine.
// Payload becomes the reply of the turn; Update is applied to the lead.
// Err marks a degraded run whose Payload is already the user-facing fallback.
type ActionResult struct {
	Payload RenderPayload
	Update  LeadUpdate
	Err     error
}
