package dsl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/dsl"
)

func TestBuilder_Kinds(t *testing.T) {
	b := dsl.New().Version("2")

	b.Add("welcome").
		Text("Hi!", "Hello!").
		Choice("Pricing", "pricing", "budget").
		Choice("Just looking", "", "bye").
		SignalAll("intent")

	b.Add("budget").
		Ask("").
		Text("Monthly budget?").
		Do(domain.ActionStoreAnswer).
		Go("score")

	b.Add("score").Do(domain.ActionComputeFit).Go("bye")
	b.Add("bye").Text("Thanks!").Go("welcome").Terminal()

	def, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "2", def.Version)
	assert.Equal(t, "welcome", def.Start)
	assert.Equal(t, []string{"welcome", "budget", "score", "bye"}, def.Order)

	welcome := def.Nodes["welcome"]
	assert.Equal(t, domain.KindChoice, welcome.Kind)
	assert.Equal(t, []string{"Hi!", "Hello!"}, welcome.Prompts)
	require.Len(t, welcome.Choices, 2)
	assert.Equal(t, "Just looking", welcome.Choices[1].Payload)
	assert.Equal(t, &domain.Signal{Key: "intent", Value: "pricing"}, welcome.Choices[0].Signal)

	budget := def.Nodes["budget"]
	assert.Equal(t, domain.KindOpenInput, budget.Kind)
	assert.Equal(t, domain.InputSingle, budget.InputType)
	assert.Equal(t, domain.ActionStoreAnswer, budget.Action)

	assert.Equal(t, domain.KindAction, def.Nodes["score"].Kind)
	assert.Equal(t, domain.KindPlain, def.Nodes["bye"].Kind)
	assert.Empty(t, def.Nodes["bye"].Next)
}

func TestBuilder_ExplicitSignalWins(t *testing.T) {
	b := dsl.New()
	b.Add("q").
		Text("Industry?").
		Choice("Retail", "retail", "").
		Signal("industry", "commerce").
		SignalAll("industry")

	def, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "commerce", def.Nodes["q"].Choices[0].Signal.Value)
}

func TestBuilder_Errors(t *testing.T) {
	_, err := dsl.New().Build()
	assert.ErrorIs(t, err, domain.ErrInvalidFlow)

	b := dsl.New()
	b.Add("welcome").Text("Hi").Go("nowhere")
	_, err = b.Build()
	assert.ErrorIs(t, err, domain.ErrInvalidFlow)
	assert.ErrorContains(t, err, `missing node "nowhere"`)

	b = dsl.New().Start("ghost")
	b.Add("welcome").Text("Hi")
	_, err = b.Build()
	assert.ErrorIs(t, err, domain.ErrInvalidFlow)
}

func TestBuilder_DrivesBot(t *testing.T) {
	b := dsl.New()
	b.Add("welcome").
		Text("Do you need more customers?").
		Choice("Yes", "yes", "name")
	b.Add("name").
		Ask("").
		Text("What is your name?").
		Do(domain.ActionStoreAnswer).
		Go("bye")
	b.Add("bye").Text("Thanks, talk soon.")

	def, err := b.Build()
	require.NoError(t, err)

	bot, err := leadflow.New(leadflow.WithFlow(def))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = bot.Chat(ctx, "dsl-1", "")
	require.NoError(t, err)
	reply, err := bot.Chat(ctx, "dsl-1", "yes")
	require.NoError(t, err)
	assert.Equal(t, "What is your name?", reply.Reply)
	reply, err = bot.Chat(ctx, "dsl-1", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "Thanks, talk soon.", reply.Reply)
	assert.True(t, reply.StoryComplete)
}
