package main

import (
	"fmt"
	"os"

	"github.com/aretw0/weave"
	"github.com/aretw0/weave/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "weave",
	Short: "Weave runs agent workflow graphs",
	Long: `Weave edits workflow graphs, turns worker nodes into agent instructions
and relays the agent's streamed output to the caller.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default weave.yaml when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Write debug logs to stderr")
}

// loadApp reads the configuration named by --config and builds the app.
func loadApp(cmd *cobra.Command) (*config.Config, *weave.App) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}

	app, err := weave.New(cmd.Context(), cfg)
	if err != nil {
		fmt.Printf("Error initializing weave: %v\n", err)
		os.Exit(1)
	}
	return cfg, app
}
