package main

import (
	"fmt"
	"os"

	"github.com/aretw0/weave/internal/cli"
	"github.com/aretw0/weave/pkg/registry"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph.yaml|dir>",
	Short: "Check the graph for consistency",
	Long:  `Validates every node against its type's parameters, checks that edges reference existing nodes and that a worker can be triggered.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g, err := cli.LoadGraph(cmd.Context(), args[0])
		if err == nil {
			err = cli.Validate(g, registry.Default())
		}
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Graph is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
