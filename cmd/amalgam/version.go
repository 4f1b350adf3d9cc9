package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped by the release build; the default marks dev builds.
var version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the amalgam version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("amalgam version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
