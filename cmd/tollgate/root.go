package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tollgate-hq/tollgate/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tollgate",
	Short: "Tollgate - policy enforcement for payment-gated APIs",
	Long: `Tollgate enforces access and spending policies for payment-gated
HTTP APIs. Policies are YAML documents evaluated in order, first deny
wins:

  - allowlist / denylist on agent ID, wallet address, or client IP
  - sliding-window rate limits, global or per subject
  - windowed spending caps on payment volume

Tollgate can lint policy files, replay test scenarios against them,
serve a mock payment-gated API that enforces them live, and generate
equivalent Express or Fastify middleware.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "tollgate.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
