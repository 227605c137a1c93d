// Command taiko is a thin CLI demo over the github.com/suziejprince/taiko
// library: a one-shot `demo` subcommand, and an interactive `shell` for
// exploring a page live.
//
// Grounded on tomyan-hubcap's cmd/hubcap (the flag/dispatch-table shape,
// restructured around cobra.Command here instead of the stdlib flag
// package) and theRebelliousNerd-codenerd's cmd/nerd root command
// (PersistentPreRunE logger setup, defaulting to an interactive mode
// when invoked with no subcommand).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suziejprince/taiko/internal/logging"
)

var (
	flagHeadless bool
	flagPort     int
	flagTimeout  time.Duration
	flagOutput   string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "taiko",
	Short: "Drive a Chromium-family browser over CDP",
	Long: `taiko is a CLI demo of the taiko browser-automation library.

Run a subcommand for a single one-shot action, or run with no
subcommand to start an interactive shell.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.Development()
		if err != nil {
			return fmt.Errorf("taiko: building logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagHeadless, "headless", true, "launch Chromium headless")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "debugging port (0 picks one automatically)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 15*time.Second, "per-command timeout")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "text", "result format: text or json")

	rootCmd.AddCommand(demoCmd, shellCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
