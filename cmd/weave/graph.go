package main

import (
	"fmt"
	"os"

	"github.com/aretw0/weave/internal/cli"
	"github.com/aretw0/weave/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <graph.yaml|dir>",
	Short: "Export the graph visualization",
	Long:  `Loads a graph and outputs a Mermaid diagram (graph TD) of its nodes and edges.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g, err := cli.LoadGraph(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading graph: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(graph.GenerateMermaid(g))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
