package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/leadflow"
	"github.com/aretw0/leadflow/flows"
	"github.com/aretw0/leadflow/internal/config"
	"github.com/aretw0/leadflow/pkg/adapters/file"
	"github.com/aretw0/leadflow/pkg/adapters/llm"
	"github.com/aretw0/leadflow/pkg/adapters/memory"
	"github.com/aretw0/leadflow/pkg/adapters/redis"
	"github.com/aretw0/leadflow/pkg/adapters/sqlstore"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/events"
	"github.com/aretw0/leadflow/pkg/flow"
	"github.com/aretw0/leadflow/pkg/observability"
	"github.com/aretw0/leadflow/pkg/persistence/middleware"
	"github.com/aretw0/leadflow/pkg/ports"
	"github.com/aretw0/leadflow/pkg/scoring"
)

// App is a fully wired bot plus the resources it owns.
type App struct {
	Bot      *leadflow.Bot
	Registry *prometheus.Registry
	Config   config.Config

	closers []io.Closer
}

// Close releases every backend opened by BuildApp.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// LoadFlow reads the configured flow, or the bundled one when path is empty,
// and applies the contact-first patch when enabled.
func LoadFlow(cfg config.Config) (*domain.Definition, error) {
	var (
		def *domain.Definition
		err error
	)
	if cfg.FlowPath == "" {
		def, err = flows.LoadDefault()
	} else {
		def, err = flow.LoadFile(cfg.FlowPath)
	}
	if err != nil {
		return nil, err
	}
	if cfg.EnforceContactFirst {
		def = flow.EnforceContactFirst(def, cfg.ContactPrompt)
	}
	return def, nil
}

// BuildApp wires storage, classifier, metrics and the bot from cfg.
// Redis replaces the in-memory session store, locker and takeover gate; a SQL
// database replaces the in-memory lead repository.
func BuildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	app := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	def, err := LoadFlow(cfg)
	if err != nil {
		return nil, err
	}

	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	scorer := scoring.New(scoring.WithConfig(cfg.Scoring))

	opts := []leadflow.Option{
		leadflow.WithFlow(def),
		leadflow.WithLogger(logger),
		leadflow.WithScorer(scorer),
		leadflow.WithMetrics(observability.NewMetrics(app.Registry)),
		leadflow.WithEventBus(events.NewBus(events.WithLogger(logger))),
		leadflow.WithTakeoverTTL(cfg.TakeoverTTL),
		leadflow.WithActionTimeout(cfg.EffectiveActionTimeout()),
		leadflow.WithMaxInputSize(cfg.MaxInputSize),
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		opts = append(opts, leadflow.WithLifecycleHooks(debugHooks(logger)))
	}

	var store ports.SessionStore
	switch {
	case cfg.Redis.URL != "":
		client, err := redis.NewClient(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		store = redis.NewFromClient(client, redis.WithPrefix(cfg.Redis.Prefix), redis.WithTTL(cfg.Sessions.TTL))
		opts = append(opts,
			leadflow.WithLocker(redis.NewLocker(client, cfg.Redis.Prefix+"lock:")),
			leadflow.WithTakeoverGate(redis.NewTakeover(client, cfg.Redis.Prefix, cfg.TakeoverTTL)),
		)
		logger.Info("Using Redis backend", "prefix", cfg.Redis.Prefix)
	case cfg.Sessions.Dir != "":
		store = file.NewStore(cfg.Sessions.Dir)
		logger.Info("Using file session store", "dir", cfg.Sessions.Dir)
	default:
		store = memory.NewStore()
	}

	if cfg.Sessions.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.Sessions.EncryptionKey)
		if err != nil {
			return nil, err
		}
		store = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(store)
	}
	opts = append(opts, leadflow.WithSessionStore(store))

	if cfg.Database.Driver != "" {
		repo, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, repo)
		opts = append(opts, leadflow.WithLeadRepository(repo))
		logger.Info("Using SQL lead repository", "driver", cfg.Database.Driver)
	}

	var transcript ports.TranscriptStore = memory.NewTranscript()
	if cfg.Transcript.Path != "" {
		t, err := file.OpenTranscript(cfg.Transcript.Path, file.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, t)
		transcript = t
	}
	if len(cfg.Transcript.Redact) > 0 {
		for _, p := range cfg.Transcript.Redact {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
			}
		}
		transcript = middleware.NewPIIMiddleware(cfg.Transcript.Redact)(transcript)
	}
	opts = append(opts, leadflow.WithTranscriptStore(transcript))

	if cfg.LLM.APIKey != "" {
		classifier, err := llm.New(llm.Config{
			APIKey:     cfg.LLM.APIKey,
			BaseURL:    cfg.LLM.BaseURL,
			Model:      cfg.LLM.Model,
			Timeout:    cfg.LLM.Timeout,
			MaxRetries: cfg.LLM.MaxRetries,
			Profile:    cfg.LLM.Profile,
		}, llm.WithLogger(logger), llm.WithScorer(scorer))
		if err != nil {
			return nil, err
		}
		opts = append(opts, leadflow.WithClassifier(classifier))
		logger.Info("Classifier enabled", "model", cfg.LLM.Model)
	} else {
		logger.Warn("No LLM key configured, flows without signals score with the baseline")
	}

	bot, err := leadflow.New(opts...)
	if err != nil {
		return nil, err
	}
	if err := CheckFlow(bot.Flow(), bot.KnownAction, logger); err != nil {
		return nil, err
	}
	app.Bot = bot
	return app, nil
}

// CheckFlow logs validation warnings and fails on errors.
func CheckFlow(def *domain.Definition, knownAction func(string) bool, logger *slog.Logger) error {
	issues := flow.Validate(def, knownAction)
	for _, issue := range issues {
		logger.Warn("Flow issue", "issue", issue.String())
	}
	if flow.HasErrors(issues) {
		return flow.Summarize(issues)
	}
	return nil
}
