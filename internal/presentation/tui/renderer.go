package tui

import (
	"github.com/charmbracelet/glamour"

	"github.com/aretw0/leadflow"
)

// NewRenderer renders bot replies as terminal markdown.
// Replies are returned unchanged if glamour cannot initialize.
func NewRenderer() leadflow.ContentRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(s string) (string, error) { return s, nil }
	}
	return r.Render
}
