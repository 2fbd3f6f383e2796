/*
Package leadflow is a lead-qualification chatbot built around a deterministic flow engine.

A flow is a graph of nodes: choice menus, open questions, plain messages and
actions such as lead scoring. Every visitor message advances one session through
the graph. Answers are captured exactly once into a lead record, collected
signals are scored by weighted rules (or, without signals, by an LLM classifier),
and the reply never reveals the score.

# Concept

The Bot is the host-facing entry point. Around each engine step it sanitizes
input, keeps the chat transcript, refreshes the lead and honours human takeover:
while an agent holds a session the bot stays silent. Storage, locking, the
classifier and the event bus are ports with in-memory defaults, so the same Bot
runs in a test, a CLI or a replicated HTTP service backed by Redis and SQL.

# Usage

	def, err := flow.LoadFile("flows/default.json")
	if err != nil {
		log.Fatal(err)
	}

	bot, err := leadflow.New(leadflow.WithFlow(def))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	reply, _ := bot.Chat(ctx, "visitor-1", "") // opens the conversation
	fmt.Println(reply.Reply)

	reply, _ = bot.Chat(ctx, "visitor-1", "Technology")
	fmt.Println(reply.Reply, reply.UI.OpenInput)
*/
package leadflow
