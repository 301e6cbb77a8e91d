package validator

import (
	"fmt"
	"strings"
)

// Severity classifies how serious a validation issue is.
type Severity string

const (
	// SeverityError marks issues that make the policy set contradictory
	// or malformed. Deployment should be blocked.
	SeverityError Severity = "error"

	// SeverityWarning marks rules that are dead weight: reachable in the
	// document but never able to fire at evaluation time.
	SeverityWarning Severity = "warning"

	// SeverityInfo marks advisory notes.
	SeverityInfo Severity = "info"
)

// Issue is a single finding from validation.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// Suggestion is a mechanically derivable fix, when one exists.
	Suggestion string `json:"suggestion,omitempty"`

	// Indices are the 0-based positions of the offending policies in
	// the set, for tooling to report line context.
	Indices []int `json:"indices"`
}

// String renders the issue for terminal output.
func (i Issue) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", i.Severity, i.Message)
	if i.Suggestion != "" {
		fmt.Fprintf(&sb, " (suggestion: %s)", i.Suggestion)
	}
	return sb.String()
}

// Report aggregates all issues found in a policy set.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Add appends an issue to the report.
func (r *Report) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// ErrorCount returns the number of Error-severity issues.
func (r *Report) ErrorCount() int {
	return r.countSeverity(SeverityError)
}

// WarningCount returns the number of Warning-severity issues.
func (r *Report) WarningCount() int {
	return r.countSeverity(SeverityWarning)
}

// IsValid reports whether the set has no Error-severity issues.
// Warnings do not make a set invalid.
func (r *Report) IsValid() bool {
	return r.ErrorCount() == 0
}

func (r *Report) countSeverity(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// BySeverity returns all issues with the given severity.
func (r *Report) BySeverity(s Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == s {
			out = append(out, issue)
		}
	}
	return out
}
