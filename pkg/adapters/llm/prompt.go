package llm

import "strings"

const (
	DefaultSystemPrompt = "You are a lead qualification assistant. Always answer with strict JSON only."
	DefaultUserTemplate = "Context:\n- Product: {product}\n- Description: {description}\n" +
		"- Ideal clients: {ideal_clients}\n- Bad fit clients: {bad_fit_clients}\n" +
		"- Core value: {core_value}\n\nInput:\n{lead_text}\n\n" +
		"Return JSON with keys category, interest, compatibility, reasons, pitch, tags."
)

// Profile describes the product the leads are qualified against.
type Profile struct {
	Product       string   `yaml:"product"`
	Description   string   `yaml:"description"`
	IdealClients  []string `yaml:"ideal_clients"`
	BadFitClients []string `yaml:"bad_fit_clients"`
	CoreValue     []string `yaml:"core_value"`
}

type promptBuilder struct {
	system   string
	template string
	fields   []string
}

func newPromptBuilder(cfg Config) promptBuilder {
	b := promptBuilder{system: cfg.SystemPrompt, template: cfg.UserTemplate}
	if b.system == "" {
		b.system = DefaultSystemPrompt
	}
	if b.template == "" {
		b.template = DefaultUserTemplate
	}
	p := cfg.Profile
	b.fields = []string{
		"{product}", p.Product,
		"{description}", p.Description,
		"{ideal_clients}", strings.Join(p.IdealClients, "; "),
		"{bad_fit_clients}", strings.Join(p.BadFitClients, "; "),
		"{core_value}", strings.Join(p.CoreValue, "; "),
	}
	return b
}

func (b promptBuilder) user(leadText string) string {
	fields := append(append([]string(nil), b.fields...), "{lead_text}", strings.TrimSpace(leadText))
	return strings.NewReplacer(fields...).Replace(b.template)
}
