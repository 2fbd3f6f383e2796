package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow/pkg/domain"
)

const jsonFlow = `{
	"version": "1.0.0",
	"nodes": [
		{"id": "intro", "text": "Hello", "next": "welcome"},
		{"id": "welcome", "texts": ["Hi!", "Hey!"], "signal": "fit",
		 "choices": [
			{"title": "Yes", "payload": "good", "next": "ask"},
			{"title": "Not really", "payload": "low", "next": "bye", "signal": "fit_intent=no"}
		 ]},
		{"id": "ask", "text": "Tell me more", "openInput": true, "action": "store_answer", "next": "score"},
		{"id": "score", "action": "compute_fit", "next": "bye"},
		{"id": "bye", "text": "Bye", "terminal": true, "next": "welcome"}
	]
}`

func TestParse_JSON(t *testing.T) {
	def, err := Parse([]byte(jsonFlow))
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", def.Version)
	assert.Equal(t, "welcome", def.Start, "welcome wins over the first node")
	assert.Equal(t, []string{"intro", "welcome", "ask", "score", "bye"}, def.Order)

	welcome, ok := def.Node("welcome")
	require.True(t, ok)
	assert.Equal(t, domain.KindChoice, welcome.Kind)
	assert.Equal(t, []string{"Hi!", "Hey!"}, welcome.Prompts)
	require.Len(t, welcome.Choices, 2)
	assert.Equal(t, &domain.Signal{Key: "fit", Value: "good"}, welcome.Choices[0].Signal)
	assert.Equal(t, &domain.Signal{Key: "fit_intent", Value: "no"}, welcome.Choices[1].Signal)

	ask, _ := def.Node("ask")
	assert.Equal(t, domain.KindOpenInput, ask.Kind)
	assert.Equal(t, domain.InputSingle, ask.InputType)
	assert.Equal(t, domain.ActionStoreAnswer, ask.Action)

	score, _ := def.Node("score")
	assert.Equal(t, domain.KindAction, score.Kind)

	bye, _ := def.Node("bye")
	assert.Equal(t, domain.KindPlain, bye.Kind)
	assert.Empty(t, bye.Next, "terminal drops next")
}

func TestParse_YAML(t *testing.T) {
	src := `
start: ask
nodes:
  - id: menu
    text: Pick one
    openInput: true
    action: compute_fit
    choices:
      - title: A
        signal:
          key: service
          value: emergency
  - id: ask
    text: Your email?
    openInput: "true"
    inputType: dual-contact
`
	def, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, "ask", def.Start)

	menu, _ := def.Node("menu")
	assert.Equal(t, domain.KindChoice, menu.Kind, "choices take precedence")
	assert.Empty(t, menu.Action)
	assert.Equal(t, "A", menu.Choices[0].Payload)
	assert.Equal(t, &domain.Signal{Key: "service", Value: "emergency"}, menu.Choices[0].Signal)

	ask, _ := def.Node("ask")
	assert.Equal(t, domain.KindOpenInput, ask.Kind)
	assert.Equal(t, domain.InputDualContact, ask.InputType)
}

func TestParse_StartFallsBackToFirstNode(t *testing.T) {
	def, err := Parse([]byte(`{"nodes": [{"id": "a", "text": "x"}, {"id": "b"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "a", def.Start)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":       `{"nodes": []}`,
		"missing id":  `{"nodes": [{"text": "x"}]}`,
		"duplicate":   `{"nodes": [{"id": "a"}, {"id": "a"}]}`,
		"bad choice":  `{"nodes": [{"id": "a", "choices": [{"next": "b"}]}]}`,
		"bad json":    `{"nodes": [`,
		"bad signals": `{"nodes": [{"id": "a", "choices": [{"title": "x", "signal": {"value": "v"}}]}]}`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.ErrorIs(t, err, domain.ErrInvalidFlow)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonFlow), 0o644))

	def, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, def.Nodes, 5)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
