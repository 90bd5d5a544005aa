package main

import (
	"fmt"
	"os"

	"github.com/aretw0/weave/internal/cli"
	"github.com/aretw0/weave/pkg/graph"
	"github.com/spf13/cobra"
)

var graphsCmd = &cobra.Command{
	Use:   "graphs",
	Short: "Manage graphs in the configured store",
	Long:  `List, export, import and remove the graphs persisted by the configured store driver.`,
}

var graphsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored graphs",
	Run: func(cmd *cobra.Command, args []string) {
		_, app := loadApp(cmd)
		defer app.Close()

		graphs, err := app.Manager().List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing graphs: %v\n", err)
			os.Exit(1)
		}
		if len(graphs) == 0 {
			fmt.Println("No graphs found.")
			return
		}
		for _, g := range graphs {
			fmt.Printf("- %s\t%s\t%d nodes\t%s\n", g.ID, g.Name, g.Nodes, g.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
	},
}

var graphsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Print a stored graph as YAML",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, app := loadApp(cmd)
		defer app.Close()

		store, err := app.Manager().Open(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error opening graph: %v\n", err)
			os.Exit(1)
		}
		data, err := graph.Encode(store.Snapshot())
		if err != nil {
			fmt.Printf("Error encoding graph: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
	},
}

var graphsImportCmd = &cobra.Command{
	Use:   "import <graph.yaml|dir>",
	Short: "Store a graph definition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, app := loadApp(cmd)
		defer app.Close()

		g, err := cli.LoadGraph(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading graph: %v\n", err)
			os.Exit(1)
		}
		store, err := app.Manager().Import(cmd.Context(), g)
		if err != nil {
			fmt.Printf("Error importing graph: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Graph '%s' stored.\n", store.ID())
	},
}

var graphsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a stored graph",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, app := loadApp(cmd)
		defer app.Close()

		if err := app.Manager().Delete(cmd.Context(), args[0]); err != nil {
			fmt.Printf("Error removing graph: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Graph '%s' removed.\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(graphsCmd)
	graphsCmd.AddCommand(graphsLsCmd, graphsExportCmd, graphsImportCmd, graphsRmCmd)
}
