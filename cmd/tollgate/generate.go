package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tollgate-hq/tollgate/pkg/codegen"
	"tollgate-hq/tollgate/pkg/policy/parser"
	"tollgate-hq/tollgate/pkg/policy/validator"
)

var generateFlags struct {
	file      string
	framework string
	out       string
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate middleware from a policy file",
	Long: `Generate standalone JavaScript middleware that enforces the same
policies as the engine. The generated module has no runtime
dependency on tollgate.

Output is deterministic: the same policy file always produces the
same middleware source, so generated files can be committed and
diffed.

Examples:
  # Express middleware to stdout
  tollgate generate --file policies.yaml --framework express

  # Fastify plugin written to a file
  tollgate generate --file policies.yaml --framework fastify --out gate.js`,
	RunE: generateMiddleware,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateFlags.file, "file", "f", "", "policy file (required)")
	generateCmd.Flags().StringVar(&generateFlags.framework, "framework", "express", "target framework: express, fastify")
	generateCmd.Flags().StringVarP(&generateFlags.out, "out", "o", "", "output file (default stdout)")

	_ = generateCmd.MarkFlagRequired("file")
}

func generateMiddleware(cmd *cobra.Command, args []string) error {
	framework, err := codegen.ParseFramework(generateFlags.framework)
	if err != nil {
		return err
	}

	set, err := parser.NewParser().Parse(generateFlags.file)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", generateFlags.file, err)
	}

	// Refuse to generate from a set the engine itself would reject.
	if report := validator.Validate(set); !report.IsValid() {
		for _, issue := range report.BySeverity(validator.SeverityError) {
			fmt.Fprintf(os.Stderr, "✗ %s\n", issue)
		}
		return fmt.Errorf("policy file has %d validation error(s); run 'tollgate lint' for details", report.ErrorCount())
	}

	source, err := codegen.Generate(set, framework)
	if err != nil {
		return fmt.Errorf("code generation failed: %w", err)
	}

	if generateFlags.out == "" {
		fmt.Print(source)
		return nil
	}
	if err := os.WriteFile(generateFlags.out, []byte(source), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", generateFlags.out, err)
	}
	fmt.Printf("Wrote %s middleware to %s\n", framework, generateFlags.out)
	return nil
}
