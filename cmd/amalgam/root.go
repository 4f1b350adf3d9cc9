package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes of the run and validate commands.
const (
	exitOK        = 0
	exitConfig    = 2 // document failed to load or validate
	exitExhausted = 3 // the search space ended before anything was emitted
	exitTimeout   = 4 // the --timeout deadline fired mid-search
)

var rootCmd = &cobra.Command{
	Use:   "amalgam",
	Short: "Amalgam explores spaces of glued and multiplied model instances",
	Long: `Amalgam reads a YAML search-space document — a schema, instance
literals, and a DAG of explicit, additive, and multiplicative generator
declarations — and lazily enumerates the composite instances it describes.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// newLogger builds the command logger: text on stderr, debug when -v.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
