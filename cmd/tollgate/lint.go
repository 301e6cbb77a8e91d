package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tollgate-hq/tollgate/pkg/cli"
	"tollgate-hq/tollgate/pkg/policy/parser"
	"tollgate-hq/tollgate/pkg/policy/policyerr"
	"tollgate-hq/tollgate/pkg/policy/validator"
)

var lintFlags struct {
	file   string
	dir    string
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate policy files",
	Long: `Validate policy files for syntax and semantic errors.

The lint command parses policy files and validates the result:
  - YAML syntax and policy structure
  - required fields and value domains per policy type
  - conflicting allowlist/denylist entries (error)
  - redundant duplicate rules and unreachable scoped rules (warning)

Examples:
  # Lint a single file
  tollgate lint --file policies.yaml

  # Lint a directory
  tollgate lint --dir policies/

  # Strict mode (warnings as errors)
  tollgate lint --file policies.yaml --strict

  # JSON output for CI
  tollgate lint --file policies.yaml --format json`,
	RunE: lintPolicies,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "policy file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of policy files")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

func lintPolicies(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	format, err := cli.ParseOutputFormat(lintFlags.format)
	if err != nil {
		return err
	}

	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list policy files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no policy files found")
	}

	results := make([]LintResult, 0, len(files))
	totalErrors := 0
	totalWarnings := 0
	for _, file := range files {
		result := lintPolicyFile(file)
		results = append(results, result)
		totalErrors += len(result.Errors)
		totalWarnings += len(result.Warnings)
	}

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, results); err != nil {
			return err
		}
	} else {
		renderLintText(results, totalErrors, totalWarnings)
	}

	if totalErrors > 0 {
		return cli.NewExitError(1, fmt.Sprintf("%d policy error(s)", totalErrors))
	}
	if lintFlags.strict && totalWarnings > 0 {
		return cli.NewExitError(1, fmt.Sprintf("%d warning(s) in strict mode", totalWarnings))
	}
	return nil
}

// LintResult is the lint outcome for one policy file.
type LintResult struct {
	File     string      `json:"file"`
	Valid    bool        `json:"valid"`
	Errors   []LintIssue `json:"errors,omitempty"`
	Warnings []LintIssue `json:"warnings,omitempty"`
}

// LintIssue is a single error or warning.
type LintIssue struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

func lintPolicyFile(path string) LintResult {
	result := LintResult{File: path, Valid: true}

	set, err := parser.NewParser().Parse(path)
	if err != nil {
		result.Valid = false
		result.Errors = parseIssues(err)
		return result
	}

	report := validator.Validate(set)
	for _, issue := range report.Issues {
		lintIssue := LintIssue{
			Message:    issue.Message,
			Suggestion: issue.Suggestion,
		}
		if len(issue.Indices) > 0 && issue.Indices[0] < len(set.Policies) {
			lintIssue.Line = set.Policies[issue.Indices[0]].Pos().Line
		}
		switch issue.Severity {
		case validator.SeverityError:
			result.Errors = append(result.Errors, lintIssue)
		case validator.SeverityWarning:
			result.Warnings = append(result.Warnings, lintIssue)
		}
	}
	result.Valid = len(result.Errors) == 0
	return result
}

// parseIssues flattens a parse error into lint issues, preserving
// per-error locations where the parser recorded them.
func parseIssues(err error) []LintIssue {
	var list *policyerr.ErrorList
	if errors.As(err, &list) {
		issues := make([]LintIssue, 0, len(list.Errors))
		for _, e := range list.Errors {
			issues = append(issues, policyIssue(e))
		}
		return issues
	}

	var pe *policyerr.Error
	if errors.As(err, &pe) {
		return []LintIssue{policyIssue(pe)}
	}

	return []LintIssue{{Message: err.Error()}}
}

func policyIssue(e *policyerr.Error) LintIssue {
	return LintIssue{
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Message:    e.Message,
		Suggestion: e.Suggestion,
		Kind:       string(e.Kind),
	}
}

func renderLintText(results []LintResult, totalErrors, totalWarnings int) {
	for _, result := range results {
		fmt.Printf("Validating %s...\n", result.File)

		if len(result.Errors) == 0 && len(result.Warnings) == 0 {
			fmt.Println("✓ No issues found")
		}

		for _, issue := range result.Errors {
			printLintIssue("✗ Error", issue)
		}
		for _, issue := range result.Warnings {
			printLintIssue("⚠  Warning", issue)
		}
		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  %d error(s), %d warning(s)\n", totalErrors, totalWarnings)
	if lintFlags.strict && totalWarnings > 0 {
		fmt.Println("  Strict mode enabled: treating warnings as errors")
	}
}

func printLintIssue(label string, issue LintIssue) {
	fmt.Printf("%s: %s", label, issue.Message)
	if issue.Line > 0 {
		fmt.Printf(" (line %d", issue.Line)
		if issue.Column > 0 {
			fmt.Printf(", col %d", issue.Column)
		}
		fmt.Print(")")
	}
	if issue.Kind != "" {
		fmt.Printf(" [%s]", issue.Kind)
	}
	fmt.Println()
	if issue.Suggestion != "" {
		fmt.Printf("  suggestion: %s\n", issue.Suggestion)
	}
}
