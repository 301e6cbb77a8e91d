package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tollgate-hq/tollgate/pkg/cli"
	"tollgate-hq/tollgate/pkg/policy/parser"
	"tollgate-hq/tollgate/pkg/policy/validator"
	"tollgate-hq/tollgate/pkg/scenario"
)

var testFlags struct {
	policy    string
	scenarios string
	format    string
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Replay scenarios against a policy file",
	Long: `Replay a scenario suite against a policy file and compare each
decision to the expected outcome.

Scenarios run against a fresh in-memory state store with a fixed
clock, so a suite always produces the same result for the same
policy file.

Examples:
  # Run a suite
  tollgate test --policy policies.yaml --scenarios scenarios.yaml

  # JSON output for CI
  tollgate test --policy policies.yaml --scenarios scenarios.yaml --format json`,
	RunE: runScenarios,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVarP(&testFlags.policy, "policy", "p", "", "policy file (required)")
	testCmd.Flags().StringVarP(&testFlags.scenarios, "scenarios", "t", "", "scenario suite file (required)")
	testCmd.Flags().StringVar(&testFlags.format, "format", "text", "output format: text, json")

	_ = testCmd.MarkFlagRequired("policy")
	_ = testCmd.MarkFlagRequired("scenarios")
}

func runScenarios(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(testFlags.format)
	if err != nil {
		return err
	}

	set, err := parser.NewParser().Parse(testFlags.policy)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", testFlags.policy, err)
	}
	if report := validator.Validate(set); !report.IsValid() {
		return fmt.Errorf("policy file has %d validation error(s); run 'tollgate lint' for details", report.ErrorCount())
	}

	suite, err := scenario.LoadSuite(testFlags.scenarios)
	if err != nil {
		return fmt.Errorf("failed to load scenarios: %w", err)
	}

	result := scenario.Run(set, suite)
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}

	if !result.AllPassed() {
		return cli.NewExitError(1, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
