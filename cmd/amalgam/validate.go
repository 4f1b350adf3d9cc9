package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amalgamlab/amalgam/config"
	"github.com/amalgamlab/amalgam/schedule"
)

// validateCmd parses a document and dry-builds its scheduler without
// drawing anything.
var validateCmd = &cobra.Command{
	Use:   "validate <space.yaml>",
	Short: "Check a search-space document without running it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)

		sp, err := config.Load(args[0])
		if err != nil {
			logger.Error("load failed", "err", err)
			os.Exit(exitConfig)
		}
		multiRoot, _ := cmd.Flags().GetBool("multi-root")
		sched, err := schedule.Build(sp.Arena, schedule.WithMultiRoot(multiRoot))
		if err != nil {
			logger.Error("build failed", "err", err)
			os.Exit(exitConfig)
		}

		fmt.Printf("space %q: %d generators, %d instances\n",
			sp.Name, sp.Arena.Len(), len(sp.Instances))
		fmt.Printf("order: %s\n", strings.Join(sched.Order(), " → "))
		fmt.Printf("roots: %s\n", strings.Join(sched.Roots(), ", "))
		os.Exit(exitOK)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("multi-root", false, "Permit several independent root generators")
}
