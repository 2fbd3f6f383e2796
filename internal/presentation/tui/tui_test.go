package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.4.0\n")

	out := buf.String()
	assert.Contains(t, out, "v0.4.0")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), len(bannerLines)+1)
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("Thanks, **Ana**!")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana")
}
