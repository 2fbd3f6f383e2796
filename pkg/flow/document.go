package flow

// document is the on-disk shape of a flow file.
// It uses "mapstructure" tags so JSON and YAML sources share one decoder;
// the json tags are used by Marshal.
type document struct {
	Version string    `mapstructure:"version" json:"version,omitempty"`
	Start   string    `mapstructure:"start" json:"start,omitempty"`
	Nodes   []nodeDoc `mapstructure:"nodes" json:"nodes"`
}

type nodeDoc struct {
	ID    string   `mapstructure:"id" json:"id"`
	Text  string   `mapstructure:"text" json:"text,omitempty"`
	Texts []string `mapstructure:"texts" json:"texts,omitempty"`

	Choices []choiceDoc `mapstructure:"choices" json:"choices,omitempty"`

	OpenInput bool   `mapstructure:"openInput" json:"openInput,omitempty"`
	InputType string `mapstructure:"inputType" json:"inputType,omitempty"`

	Action string `mapstructure:"action" json:"action,omitempty"`
	Next   string `mapstructure:"next" json:"next,omitempty"`

	// Signal names the key every choice of this node writes its payload to.
	Signal   string `mapstructure:"signal" json:"signal,omitempty"`
	Terminal bool   `mapstructure:"terminal" json:"terminal,omitempty"`
}

type choiceDoc struct {
	Title   string `mapstructure:"title" json:"title"`
	Payload string `mapstructure:"payload" json:"payload,omitempty"`
	Next    string `mapstructure:"next" json:"next,omitempty"`
	// Signal is either "key", "key=value" or a {key, value} mapping.
	Signal any `mapstructure:"signal" json:"signal,omitempty"`
}
