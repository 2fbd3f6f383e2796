package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/leadflow/internal/config"
	httpAdapter "github.com/aretw0/leadflow/pkg/adapters/http"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/flow"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// ServeOptions configures the HTTP server command.
type ServeOptions struct {
	Watch      bool
	ChunkDelay time.Duration
}

// Serve runs the HTTP API until SIGINT or SIGTERM.
func Serve(cfg config.Config, opts ServeOptions, logger *slog.Logger) error {
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	app, err := BuildApp(sigCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("error initializing bot: %w", err)
	}
	defer app.Close()

	if cfg.AdminToken == "" {
		logger.Warn("No admin token configured, agent and lead routes are open")
	}

	httpOpts := []httpAdapter.Option{
		httpAdapter.WithAdminToken(cfg.AdminToken),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})),
		httpAdapter.WithChunkDelay(opts.ChunkDelay),
		httpAdapter.WithLogger(logger),
	}
	if cfg.EnforceContactFirst {
		httpOpts = append(httpOpts, httpAdapter.WithFlowPatch(func(def *domain.Definition) *domain.Definition {
			return flow.EnforceContactFirst(def, cfg.ContactPrompt)
		}))
	}
	handler := httpAdapter.NewHandler(app.Bot, httpOpts...)

	// Open SSE streams end when shutdown starts; they would otherwise hold Shutdown until its deadline.
	baseCtx, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(stopStreams)

	if opts.Watch {
		go WatchFlow(sigCtx, app.Bot, cfg, DefaultWatchDebounce, logger)
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", srv.Addr, "flow", cfg.FlowPath)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-sigCtx.Done():
		logger.Info("Shutdown started", "signal", sigCtx.Signal())

		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("Server stopped gracefully")
		return nil
	}
}
