/*
Package dsl builds leadflow flow definitions in Go instead of YAML or JSON.

It is handy for tests, generated flows and IDE completion.

	b := dsl.New()

	b.Add("welcome").
		Text("Hi! What brings you here?").
		Choice("Pricing", "pricing", "budget").
		Choice("Just looking", "browse", "bye")

	b.Add("budget").
		Ask(domain.InputSingle).
		Text("What is your monthly budget?").
		Go("score")

	b.Add("score").Do(domain.ActionComputeFit).Go("bye")
	b.Add("bye").Text("Thanks, talk soon!")

	def, err := b.Build()
	// ... pass def to leadflow.WithFlow
*/
package dsl
