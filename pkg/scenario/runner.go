package scenario

import (
	"fmt"
	"io"
	"strings"
	"time"

	"tollgate-hq/tollgate/pkg/engine"
	"tollgate-hq/tollgate/pkg/policy/ast"
	"tollgate-hq/tollgate/pkg/state"
)

// baseTime anchors at_offset_seconds. Any fixed instant works; this
// one keeps failure output readable.
var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Result is the outcome of one scenario step.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason,omitempty"`
	Mismatch string `json:"mismatch,omitempty"`
}

// Report summarizes a full suite run.
type Report struct {
	Results []Result `json:"results"`
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
}

// AllPassed reports whether every scenario matched its expectation.
func (r *Report) AllPassed() bool {
	return r.Failed == 0
}

// RenderText writes the report in the familiar check/cross format.
func (r *Report) RenderText(w io.Writer) error {
	for _, result := range r.Results {
		if result.Passed {
			if _, err := fmt.Fprintf(w, "✓ %s\n", result.Name); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "✗ %s\n", result.Name); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "  %s\n", result.Mismatch); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d scenarios run, %d passed, %d failed\n",
		len(r.Results), r.Passed, r.Failed)
	return err
}

// Run replays the suite against a fresh engine holding the given
// policy set. Scenarios execute in order over shared state.
func Run(set *ast.PolicySet, suite *Suite) *Report {
	eng := engine.New(state.NewMemoryStore())
	report := &Report{}

	for _, s := range suite.Scenarios {
		req := engine.Request{
			AgentID:       s.Request.AgentID,
			WalletAddress: s.Request.WalletAddress,
			IPAddress:     s.Request.IPAddress,
			ResourcePath:  s.Request.Path,
			Amount:        s.Request.Amount,
			Timestamp:     baseTime.Add(time.Duration(s.Request.AtOffsetSeconds) * time.Second),
		}

		decision := eng.Evaluate(set, &req)
		result := check(s, decision)
		report.Results = append(report.Results, result)
		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}
	return report
}

func check(s Scenario, decision engine.Decision) Result {
	result := Result{
		Name:     s.Name,
		Expected: s.Expect.Outcome,
		Actual:   string(decision.Outcome),
		Reason:   decision.Reason,
	}

	if string(decision.Outcome) != s.Expect.Outcome {
		result.Mismatch = fmt.Sprintf("expected outcome %q, got %q (reason: %s)",
			s.Expect.Outcome, decision.Outcome, orNone(decision.Reason))
		return result
	}

	if s.Expect.ReasonContains != "" && !strings.Contains(decision.Reason, s.Expect.ReasonContains) {
		result.Mismatch = fmt.Sprintf("expected reason containing %q, got %q",
			s.Expect.ReasonContains, decision.Reason)
		return result
	}

	if s.Expect.RuleIndex != nil && decision.RuleIndex != *s.Expect.RuleIndex {
		result.Mismatch = fmt.Sprintf("expected rule index %d, got %d",
			*s.Expect.RuleIndex, decision.RuleIndex)
		return result
	}

	result.Passed = true
	return result
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
