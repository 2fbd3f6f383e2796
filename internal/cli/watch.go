package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/leadflow"
	"github.com/aretw0/leadflow/internal/config"
)

// DefaultWatchDebounce coalesces the burst of events a single editor save produces.
const DefaultWatchDebounce = 200 * time.Millisecond

// WatchFlow reloads the flow into bot whenever the file changes, until ctx is
// done. The parent directory is watched so saves that replace the file by
// rename are seen too. Broken edits are logged and the running flow is kept,
// so sessions never see a half-written graph.
func WatchFlow(ctx context.Context, bot *leadflow.Bot, cfg config.Config, debounce time.Duration, logger *slog.Logger) {
	if cfg.FlowPath == "" {
		logger.Warn("Watch disabled, no flow file configured")
		return
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	path, err := filepath.Abs(cfg.FlowPath)
	if err != nil {
		logger.Error("Watch disabled", "path", cfg.FlowPath, "err", err)
		return
	}
	dir, name := filepath.Split(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("Watch disabled", "err", err)
		return
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		logger.Error("Watch disabled", "path", dir, "err", err)
		return
	}

	logger.Info("Starting Watcher", "path", path)
	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watcher")
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("Flow file event", "op", ev.Op.String())
			reload = time.After(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error", "err", err)

		case <-reload:
			reload = nil
			reloadFlow(bot, cfg, logger)
		}
	}
}

func reloadFlow(bot *leadflow.Bot, cfg config.Config, logger *slog.Logger) {
	logger.Info("Change detected, reloading flow", "path", cfg.FlowPath)

	def, err := LoadFlow(cfg)
	if err != nil {
		logger.Error("Flow reload failed, keeping previous flow", "err", err)
		return
	}
	if err := CheckFlow(def, bot.KnownAction, logger); err != nil {
		logger.Error("Flow reload rejected, keeping previous flow", "err", err)
		return
	}
	if err := bot.SetFlow(def); err != nil {
		logger.Error("Flow swap failed", "err", err)
	}
}
