package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/weave/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <graph.yaml|dir>",
	Short: "Run the worker node of a graph",
	Long: `Loads a graph from a YAML file or a directory of node documents, triggers
its worker node and streams the agent's output to stdout.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		buffered, _ := cmd.Flags().GetBool("buffered")
		watch, _ := cmd.Flags().GetBool("watch")
		quiet, _ := cmd.Flags().GetBool("quiet")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err := cli.Execute(ctx, cli.RunOptions{
			Path:       args[0],
			ConfigPath: configPath,
			Buffered:   buffered,
			Watch:      watch,
			Debug:      debug,
			Quiet:      quiet,
		}, os.Stdout)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("buffered", false, "Wait for the full answer and render it as markdown")
	runCmd.Flags().BoolP("watch", "w", false, "Run again whenever the graph directory changes")
	runCmd.Flags().BoolP("quiet", "q", false, "Print only the relayed output")
}
