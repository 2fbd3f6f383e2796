// Package config resolves the service settings.
//
// Values are layered, later sources winning: built-in defaults, the YAML file,
// the .env file, the process environment and finally command-line flags, which
// the cmd layer applies on the returned Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/leadflow/internal/logging"
	"github.com/aretw0/leadflow/pkg/adapters/llm"
	"github.com/aretw0/leadflow/pkg/scoring"
)

// EnvPrefix prefixes every environment variable the service reads.
const EnvPrefix = "LEADFLOW_"

// DefaultFile is the YAML file read when no path is given.
const DefaultFile = "leadflow.yaml"

// Config is the resolved service configuration.
type Config struct {
	Listen   string `yaml:"listen"`
	FlowPath string `yaml:"flow"`
	LogLevel string `yaml:"log_level"`

	EnforceContactFirst bool   `yaml:"enforce_contact_first"`
	ContactPrompt       string `yaml:"contact_prompt"`

	AdminToken  string        `yaml:"admin_token"`
	TakeoverTTL time.Duration `yaml:"takeover_ttl"`
	// ActionTimeout bounds one action handler run. Zero derives it from the
	// LLM settings, see EffectiveActionTimeout.
	ActionTimeout time.Duration `yaml:"action_timeout"`
	MaxInputSize  int           `yaml:"max_input_size"`

	Sessions   SessionConfig    `yaml:"sessions"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	Transcript TranscriptConfig `yaml:"transcript"`
	LLM        LLMConfig        `yaml:"llm"`
	Scoring    scoring.Config   `yaml:"scoring"`
}

// SessionConfig controls where flow state lives when Redis is not configured.
type SessionConfig struct {
	// Dir enables the file store. Empty keeps sessions in memory.
	Dir string        `yaml:"dir"`
	TTL time.Duration `yaml:"ttl"`
	// EncryptionKey is a base64 AES-256 key; empty disables encryption at rest.
	EncryptionKey string `yaml:"encryption_key"`
}

// RedisConfig enables the Redis session store, locker and takeover gate.
type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// DatabaseConfig enables the SQL lead repository.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// TranscriptConfig enables the JSONL transcript.
type TranscriptConfig struct {
	Path string `yaml:"path"`
	// Redact lists regular expressions masked before messages are stored.
	Redact []string `yaml:"redact"`
}

// LLMConfig configures the lead classifier. An empty APIKey disables it.
type LLMConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	Profile    llm.Profile   `yaml:"profile"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Listen:              ":8080",
		LogLevel:            "info",
		EnforceContactFirst: true,
		TakeoverTTL:         15 * time.Minute,
		MaxInputSize:        4096,
		Sessions:            SessionConfig{TTL: 24 * time.Hour},
		Redis:               RedisConfig{Prefix: "leadflow:"},
		LLM: LLMConfig{
			BaseURL:    llm.DefaultBaseURL,
			Model:      llm.DefaultModel,
			Timeout:    llm.DefaultTimeout,
			MaxRetries: llm.DefaultMaxRetries,
		},
	}
}

// EffectiveActionTimeout returns ActionTimeout when set, otherwise enough time
// for the first LLM request and every retry.
func (c Config) EffectiveActionTimeout() time.Duration {
	if c.ActionTimeout > 0 {
		return c.ActionTimeout
	}
	retries := max(c.LLM.MaxRetries, 0)
	return c.LLM.Timeout * time.Duration(retries+1)
}

// Loader reads configuration sources.
type Loader struct {
	// File is the YAML path. A missing DefaultFile is not an error; any other missing path is.
	File string
	// EnvFile is the dotenv path; missing files are ignored.
	EnvFile string
	// Lookup reads the process environment. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
	Logger *slog.Logger
}

// Load resolves defaults, the YAML file and the environment.
func Load(file string) (Config, error) {
	return Loader{File: file, EnvFile: ".env"}.Load()
}

// Load resolves defaults, the YAML file and the environment.
func (l Loader) Load() (Config, error) {
	cfg := Default()
	logger := l.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	path := l.File
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		logger.Debug("Config file loaded", "path", path)
	case errors.Is(err, fs.ErrNotExist) && l.File == "":
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	dotenv := map[string]string{}
	if l.EnvFile != "" {
		m, err := godotenv.Read(l.EnvFile)
		switch {
		case err == nil:
			dotenv = m
			logger.Debug("Env file loaded", "path", l.EnvFile, "keys", len(m))
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("failed to read %s: %w", l.EnvFile, err)
		}
	}

	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	cfg.Scoring = scoring.DefaultConfig().Merge(cfg.Scoring)
	return cfg, cfg.Validate()
}

type envSetter func(cfg *Config, v string) error

func str(get func(*Config) *string) envSetter {
	return func(cfg *Config, v string) error {
		*get(cfg) = v
		return nil
	}
}

func duration(get func(*Config) *time.Duration) envSetter {
	return func(cfg *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*get(cfg) = d
		return nil
	}
}

func integer(get func(*Config) *int) envSetter {
	return func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*get(cfg) = n
		return nil
	}
}

func boolean(get func(*Config) *bool) envSetter {
	return func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*get(cfg) = b
		return nil
	}
}

// envVars maps environment variables onto fields.
var envVars = []struct {
	key string
	set envSetter
}{
	{EnvPrefix + "LISTEN", str(func(c *Config) *string { return &c.Listen })},
	{EnvPrefix + "FLOW", str(func(c *Config) *string { return &c.FlowPath })},
	{EnvPrefix + "LOG_LEVEL", str(func(c *Config) *string { return &c.LogLevel })},
	{EnvPrefix + "ENFORCE_CONTACT_FIRST", boolean(func(c *Config) *bool { return &c.EnforceContactFirst })},
	{EnvPrefix + "ADMIN_TOKEN", str(func(c *Config) *string { return &c.AdminToken })},
	{EnvPrefix + "TAKEOVER_TTL", duration(func(c *Config) *time.Duration { return &c.TakeoverTTL })},
	{EnvPrefix + "ACTION_TIMEOUT", duration(func(c *Config) *time.Duration { return &c.ActionTimeout })},
	{EnvPrefix + "MAX_INPUT_SIZE", integer(func(c *Config) *int { return &c.MaxInputSize })},
	{EnvPrefix + "SESSION_DIR", str(func(c *Config) *string { return &c.Sessions.Dir })},
	{EnvPrefix + "SESSION_TTL", duration(func(c *Config) *time.Duration { return &c.Sessions.TTL })},
	{EnvPrefix + "ENCRYPTION_KEY", str(func(c *Config) *string { return &c.Sessions.EncryptionKey })},
	{EnvPrefix + "REDIS_URL", str(func(c *Config) *string { return &c.Redis.URL })},
	{EnvPrefix + "DB_DRIVER", str(func(c *Config) *string { return &c.Database.Driver })},
	{EnvPrefix + "DB_DSN", str(func(c *Config) *string { return &c.Database.DSN })},
	{EnvPrefix + "TRANSCRIPT_PATH", str(func(c *Config) *string { return &c.Transcript.Path })},
	{EnvPrefix + "LLM_BASE_URL", str(func(c *Config) *string { return &c.LLM.BaseURL })},
	{EnvPrefix + "LLM_MODEL", str(func(c *Config) *string { return &c.LLM.Model })},
	{"DEEPSEEK_API_KEY", str(func(c *Config) *string { return &c.LLM.APIKey })},
	{EnvPrefix + "LLM_API_KEY", str(func(c *Config) *string { return &c.LLM.APIKey })},
	{EnvPrefix + "LLM_TIMEOUT", duration(func(c *Config) *time.Duration { return &c.LLM.Timeout })},
	{EnvPrefix + "LLM_MAX_RETRIES", integer(func(c *Config) *int { return &c.LLM.MaxRetries })},
}

func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := env(ev.key)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if err := ev.set(cfg, v); err != nil {
			return fmt.Errorf("invalid %s: %w", ev.key, err)
		}
	}
	return nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	if c.Database.DSN != "" && c.Database.Driver == "" {
		errs = append(errs, errors.New("database.dsn requires database.driver"))
	}
	switch c.Database.Driver {
	case "", "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.TakeoverTTL <= 0 {
		errs = append(errs, errors.New("takeover_ttl must be positive"))
	}
	if c.MaxInputSize <= 0 {
		errs = append(errs, errors.New("max_input_size must be positive"))
	}
	if c.ActionTimeout < 0 {
		errs = append(errs, errors.New("action_timeout must not be negative"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, errors.New("llm.max_retries must not be negative"))
	}
	if c.LLM.APIKey != "" && c.ActionTimeout > 0 && c.ActionTimeout < c.LLM.Timeout {
		errs = append(errs, fmt.Errorf("action_timeout %s is shorter than llm.timeout %s, classifier calls would always be cut off", c.ActionTimeout, c.LLM.Timeout))
	}
	if c.Redis.URL != "" && c.Sessions.Dir != "" {
		errs = append(errs, errors.New("redis.url and sessions.dir are mutually exclusive"))
	}
	return errors.Join(errs...)
}
