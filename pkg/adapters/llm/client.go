// Package llm classifies leads through an OpenAI-compatible chat completions API.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/aretw0/leadflow/internal/logging"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/ports"
	"github.com/aretw0/leadflow/pkg/scoring"
)

const (
	DefaultBaseURL    = "https://api.deepseek.com"
	DefaultModel      = "deepseek-chat"
	DefaultTimeout    = 35 * time.Second
	DefaultMaxRetries = 3
	temperature       = 0.2
)

// Config describes the endpoint and the prompts.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int

	SystemPrompt string
	// UserTemplate may reference {product}, {description}, {ideal_clients},
	// {bad_fit_clients}, {core_value} and {lead_text}.
	UserTemplate string
	Profile      Profile
}

// Client implements ports.Classifier.
type Client struct {
	api    openai.Client
	model  string
	prompt promptBuilder
	scorer *scoring.Scorer
	logger *slog.Logger
}

var _ ports.Classifier = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithScorer supplies the thresholds used when the model omits the tier.
func WithScorer(s *scoring.Scorer) Option {
	return func(c *Client) {
		c.scorer = s
	}
}

// New creates a Client. An empty APIKey is an error.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	c := &Client{
		api: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
			option.WithRequestTimeout(cfg.Timeout),
			option.WithMaxRetries(cfg.MaxRetries),
		),
		model:  cfg.Model,
		prompt: newPromptBuilder(cfg),
		scorer: scoring.New(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify sends the lead text to the model and normalizes its JSON answer.
// Transport failures and unparseable answers wrap domain.ErrClassifierFailed.
func (c *Client) Classify(ctx context.Context, leadText string) (domain.Classification, error) {
	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.prompt.system),
			openai.UserMessage(c.prompt.user(leadText)),
		},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %v", domain.ErrClassifierFailed, err)
	}
	if len(resp.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("%w: no choices returned", domain.ErrClassifierFailed)
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("Classifier answered", "model", c.model, "duration", time.Since(start), "size", len(content))

	out, err := Coerce(content, c.scorer)
	if err != nil {
		c.logger.Warn("Classifier returned unusable content", "error", err, "content", truncate(content, 300))
		return domain.Classification{}, err
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
