package main

import (
	"fmt"

	"github.com/aretw0/weave"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of weave",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("weave version %s\n", weave.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
