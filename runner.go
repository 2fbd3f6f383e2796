package leadflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/leadflow/pkg/domain"
)

// Runner drives a Bot conversation over line-based IO.
// It backs the interactive CLI and scripted tests alike.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms a reply before it is printed, e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner. Input and Output must be set before Run.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Run chats as sessionID until the input ends or the visitor types exit.
// The first turn is sent empty so the bot opens the conversation.
func (r *Runner) Run(ctx context.Context, bot *Bot, sessionID string) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)

	if !r.Headless {
		fmt.Fprintln(r.Output, "--- leadflow chat (type 'exit' to quit) ---")
	}

	text := ""
	for {
		reply, err := bot.Chat(ctx, sessionID, text)
		if err != nil {
			return fmt.Errorf("chat error: %w", err)
		}
		r.print(reply)
		choices := reply.UI.Choices

		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		line, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		text = strings.TrimSpace(line)
		if errors.Is(err, io.EOF) && text == "" {
			return nil
		}
		if text == "exit" || text == "quit" {
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		}
		text = pickChoice(choices, text)
	}
}

// pickChoice lets the visitor answer a menu with its number.
func pickChoice(choices []domain.ChoiceButton, text string) string {
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > len(choices) {
		return text
	}
	return choices[n-1].Payload
}

func (r *Runner) print(reply Reply) {
	w := r.Output
	if reply.HumanMode {
		if !r.Headless {
			fmt.Fprintln(w, "(an agent has joined the conversation)")
		}
		return
	}
	if reply.Reply != "" {
		out := reply.Reply
		if r.Renderer != nil {
			if rendered, err := r.Renderer(out); err == nil {
				out = rendered
			}
		}
		fmt.Fprintln(w, strings.TrimSpace(out))
	}
	for i, c := range reply.UI.Choices {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, c.Title)
	}
}
