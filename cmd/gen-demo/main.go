package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/weave/pkg/adapters/loam"
	"github.com/aretw0/weave/pkg/dsl"
)

func main() {
	targetDir := "examples/treasury"
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		panic(err)
	}

	fmt.Printf("Generating treasury demo in: %s\n", targetDir)

	b := dsl.New("treasury").Name("Treasury")
	b.ChatModel("gpt", "gpt-4o-mini").Set("temperature", 0.2).At(0, 0)
	b.Supervisor("treasurer", "Treasurer").
		Set("supervisorPrompt", "Route payment requests to the payer.").
		Model("gpt").
		Supervises("payer").
		At(240, 0)
	b.Worker("payer", "Payer", "transferTokens").
		Prompt("Send 5 APT to the treasury wallet.").
		Amount(5).
		Input(map[string]any{"to": "0x1d8727df513fa2a8785d0834e40b34223daff1affc079574082baadb74b66ee4"}).
		At(480, 0)

	g, err := b.Build()
	check(err)

	// Node documents are written with versioning off: this is pure file generation.
	src, err := loam.Open(targetDir)
	check(err)
	check(src.Save(context.Background(), g))

	fmt.Println("Done. Run it with: weave run", targetDir)
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
