/*
Package dsl provides a fluent builder for constructing weave graphs in Go.

It is an alternative to YAML files and node documents, useful for
generating graphs, seeding demos and writing tests.

Example usage:

	b := dsl.New("treasury").Name("Treasury")

	b.ChatModel("gpt", "gpt-4o-mini").Set("temperature", 0.2)

	b.Supervisor("treasurer", "Treasurer").
		Model("gpt").
		Supervises("payer")

	b.Worker("payer", "Payer", "transferTokens").
		Prompt("Send 5 APT to the treasury wallet.").
		Amount(5).
		Input(map[string]any{"to": "0x1d87"})

	g, err := b.Build()
*/
package dsl
