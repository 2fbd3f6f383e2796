package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/aretw0/leadflow"
	"github.com/aretw0/leadflow/internal/config"
	"github.com/aretw0/leadflow/internal/presentation/tui"
)

// ChatOptions configures the interactive chat command.
type ChatOptions struct {
	SessionID string
	Headless  bool
	Watch     bool
	Fresh     bool

	In  io.Reader
	Out io.Writer
}

// RunChat talks to the configured bot over the terminal.
func RunChat(cfg config.Config, opts ChatOptions, logger *slog.Logger) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.SessionID == "" {
		opts.SessionID = "cli-local"
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	app, err := BuildApp(sigCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("error initializing bot: %w", err)
	}
	defer app.Close()

	if opts.Fresh {
		if err := app.Bot.ResetSession(sigCtx, opts.SessionID); err != nil {
			return err
		}
	}

	interactive := !opts.Headless && isTerminal(opts.Out)
	if interactive {
		tui.PrintBanner(opts.Out, leadflow.Version)
		if _, err := app.Bot.State(sigCtx, opts.SessionID); err == nil {
			printSystemMessage(opts.Out, "Resuming session '%s'.", opts.SessionID)
		}
	}

	if opts.Watch {
		go WatchFlow(sigCtx, app.Bot, cfg, DefaultWatchDebounce, logger)
	}

	r := leadflow.NewRunner(NewInterruptibleReader(opts.In, sigCtx.Done()), opts.Out)
	r.Headless = opts.Headless
	if interactive {
		r.Renderer = tui.NewRenderer()
	}

	err = r.Run(sigCtx, app.Bot, opts.SessionID)
	if sig := sigCtx.Signal(); sig != nil && interactive {
		fmt.Fprintln(opts.Out)
		printSystemMessage(opts.Out, "Interrupted (%v).", sig)
	}
	return handleExecutionError(err)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
