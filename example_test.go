package leadflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/leadflow"
	"github.com/aretw0/leadflow/pkg/flow"
)

// ExampleNew demonstrates a bot running a small flow entirely in memory.
func ExampleNew() {
	def, err := flow.Parse([]byte(`{
		"nodes": [
			{"id": "welcome", "text": "Looking for new clients?", "signal": "fit",
			 "choices": [{"title": "Yes", "payload": "good", "next": "score"}]},
			{"id": "score", "action": "compute_fit"}
		]
	}`))
	if err != nil {
		log.Fatal(err)
	}

	bot, err := leadflow.New(leadflow.WithFlow(def))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	reply, _ := bot.Chat(ctx, "demo-session", "")
	fmt.Println(reply.Reply)

	reply, _ = bot.Chat(ctx, "demo-session", "Yes")
	fmt.Println(reply.Reply)
	fmt.Println("complete:", reply.StoryComplete)

	lead, _ := bot.Leads().Get(ctx, "demo-session")
	fmt.Println(lead.Interest, lead.Stage)

	// Output:
	// Looking for new clients?
	// I suggest we schedule a short call to agree on the next steps.
	// complete: true
	// High Interested
}
