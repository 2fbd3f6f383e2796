package domain

// NodeKind is the closed set of node behaviours, decided once when the flow is compiled.
type NodeKind int

const (
	// KindPlain renders its prompt and stops.
	KindPlain NodeKind = iota
	// KindChoice renders buttons and matches the inbound text against them.
	KindChoice
	// KindOpenInput asks a free-text question and captures the next inbound message.
	KindOpenInput
	// KindAction runs a side-effecting handler and reports its result.
	KindAction
)

func (k NodeKind) String() string {
	switch k {
	case KindChoice:
		return "choice"
	case KindOpenInput:
		return "open_input"
	case KindAction:
		return "action"
	default:
		return "plain"
	}
}

// Well-known action names.
const (
	ActionStoreAnswer   = "store_answer"
	ActionComputeFit    = "compute_fit"
	ActionDeepseekScore = "deepseek_score"
)

// Input type hints for open-input nodes.
const (
	InputSingle      = "single"
	InputDualContact = "dual-contact"
)

// Signal is a key/value pair merged into the session's collected signals.
type Signal struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Choice is one selectable option of a choice node.
type Choice struct {
	Title   string  `json:"title"`
	Payload string  `json:"payload"`
	Next    string  `json:"next,omitempty"`
	Signal  *Signal `json:"signal,omitempty"`
}

// Matches reports whether the inbound text selects this choice.
// Matching is exact on either the title or the payload.
func (c Choice) Matches(text string) bool {
	return text != "" && (text == c.Title || text == c.Payload)
}

// FlowNode is an immutable point in the scripted conversation graph.
type FlowNode struct {
	ID      string   `json:"id"`
	Kind    NodeKind `json:"kind"`
	Prompts []string `json:"prompts,omitempty"`

	// Choices is only populated for KindChoice.
	Choices []Choice `json:"choices,omitempty"`

	// InputType is the client hint for KindOpenInput.
	InputType string `json:"input_type,omitempty"`

	// Action names the handler of a KindAction node, or the capture behaviour
	// of a KindOpenInput node.
	Action string `json:"action,omitempty"`

	// Next is the default successor. Plain nodes keep it for graph tooling only.
	Next string `json:"next,omitempty"`
}

// Successors returns every node id this node can move to, in declaration order.
func (n FlowNode) Successors() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, c := range n.Choices {
		add(c.Next)
	}
	add(n.Next)
	return out
}

// Definition is the compiled flow graph shared read-only by every session.
type Definition struct {
	Version string
	Start   string
	Nodes   map[string]FlowNode
	// Order preserves declaration order for tooling and fallbacks.
	Order []string
}

// Node looks up a node by id.
func (d *Definition) Node(id string) (FlowNode, bool) {
	if d == nil {
		return FlowNode{}, false
	}
	n, ok := d.Nodes[id]
	return n, ok
}

// Clone returns a copy whose node map can be modified without touching d.
func (d *Definition) Clone() *Definition {
	out := &Definition{
		Version: d.Version,
		Start:   d.Start,
		Nodes:   make(map[string]FlowNode, len(d.Nodes)),
		Order:   append([]string(nil), d.Order...),
	}
	for id, n := range d.Nodes {
		out.Nodes[id] = n
	}
	return out
}
