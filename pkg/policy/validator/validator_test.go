package validator

import (
	"strings"
	"testing"

	"tollgate-hq/tollgate/pkg/policy/ast"
)

func scopeOf(f ast.SubjectField) *ast.SubjectField {
	return &f
}

func setOf(policies ...ast.Policy) *ast.PolicySet {
	return &ast.PolicySet{Policies: policies, SourceFile: "test.yaml"}
}

func TestValidate_CleanSet(t *testing.T) {
	report := NewValidator().Validate(setOf(
		&ast.Allowlist{Field: ast.FieldAgentID, Values: []string{"agent-1"}},
		&ast.Denylist{Field: ast.FieldIPAddress, Values: []string{"10.0.0.1"}},
		&ast.RateLimit{MaxRequests: 10, WindowSeconds: 60, Scope: scopeOf(ast.FieldAgentID)},
		&ast.SpendingCap{MaxAmount: 100, Currency: "USD", WindowSeconds: 3600, Scope: scopeOf(ast.FieldWalletAddress)},
	))

	if !report.IsValid() {
		t.Errorf("expected valid report, got issues: %v", report.Issues)
	}
	if len(report.Issues) != 0 {
		t.Errorf("expected zero issues, got %d", len(report.Issues))
	}
}

func TestValidate_PackageLevel(t *testing.T) {
	report := Validate(setOf(
		&ast.Allowlist{Field: ast.FieldAgentID, Values: []string{"agent-1"}},
		&ast.Denylist{Field: ast.FieldAgentID, Values: []string{"agent-1"}},
	))

	if report.IsValid() {
		t.Error("overlapping allow/deny should report an error")
	}
	if report.ErrorCount() != 1 {
		t.Errorf("errors = %d, want 1", report.ErrorCount())
	}
}

func TestValidate_NilAndEmptySet(t *testing.T) {
	if report := NewValidator().Validate(nil); !report.IsValid() {
		t.Error("nil set should validate clean")
	}
	if report := NewValidator().Validate(setOf()); !report.IsValid() {
		t.Error("empty set should validate clean")
	}
}

func TestValidate_AllowDenyOverlap(t *testing.T) {
	tests := []struct {
		name       string
		allowValue string
		denyValue  string
		overlap    bool
	}{
		{"identical literals", "agent-1", "agent-1", true},
		{"distinct literals", "agent-1", "agent-2", false},
		{"wildcard covers literal", "a*", "abc", true},
		{"literal covered by wildcard", "abc", "a*", true},
		{"wildcard misses literal", "team-*", "agent-1", false},
		{"mutual prefix wildcards", "agent-*", "agent-eu-*", true},
		{"disjoint wildcards", "agent-*", "wallet-*", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewValidator().Validate(setOf(
				&ast.Allowlist{Field: ast.FieldAgentID, Values: []string{tt.allowValue}},
				&ast.Denylist{Field: ast.FieldAgentID, Values: []string{tt.denyValue}},
			))

			if tt.overlap {
				if report.ErrorCount() < 1 {
					t.Fatalf("expected at least one error for %q vs %q", tt.allowValue, tt.denyValue)
				}
				issue := report.BySeverity(SeverityError)[0]
				if len(issue.Indices) != 2 || issue.Indices[0] != 0 || issue.Indices[1] != 1 {
					t.Errorf("expected indices [0 1], got %v", issue.Indices)
				}
				if issue.Suggestion == "" {
					t.Error("expected a suggestion on the overlap issue")
				}
			} else if report.ErrorCount() != 0 {
				t.Errorf("expected no error for %q vs %q, got: %v", tt.allowValue, tt.denyValue, report.Issues)
			}
		})
	}
}

func TestValidate_AllowDenyDifferentFieldsNoConflict(t *testing.T) {
	report := NewValidator().Validate(setOf(
		&ast.Allowlist{Field: ast.FieldAgentID, Values: []string{"shared"}},
		&ast.Denylist{Field: ast.FieldWalletAddress, Values: []string{"shared"}},
	))
	if !report.IsValid() {
		t.Errorf("different subject fields must not conflict: %v", report.Issues)
	}
}

func TestValidate_OrderIndependentOverlap(t *testing.T) {
	// Denylist before allowlist must be flagged too.
	report := NewValidator().Validate(setOf(
		&ast.Denylist{Field: ast.FieldAgentID, Values: []string{"abc"}},
		&ast.Allowlist{Field: ast.FieldAgentID, Values: []string{"a*"}},
	))
	if report.ErrorCount() != 1 {
		t.Fatalf("expected 1 error, got %d", report.ErrorCount())
	}
}

func TestValidate_DuplicateStateful(t *testing.T) {
	report := NewValidator().Validate(setOf(
		&ast.RateLimit{MaxRequests: 10, WindowSeconds: 60, Scope: scopeOf(ast.FieldAgentID)},
		&ast.RateLimit{MaxRequests: 100, WindowSeconds: 60, Scope: scopeOf(ast.FieldAgentID)},
	))

	if report.WarningCount() != 1 {
		t.Fatalf("expected 1 warning, got %d (%v)", report.WarningCount(), report.Issues)
	}
	// Duplicates are warnings, not errors: the set still deploys.
	if !report.IsValid() {
		t.Error("duplicate stateful rules must not invalidate the set")
	}
}

func TestValidate_DuplicateStatefulUnscoped(t *testing.T) {
	report := NewValidator().Validate(setOf(
		&ast.SpendingCap{MaxAmount: 10, Currency: "USD", WindowSeconds: 60},
		&ast.SpendingCap{MaxAmount: 20, Currency: "USD", WindowSeconds: 60},
	))
	if report.WarningCount() != 1 {
		t.Fatalf("expected 1 warning for duplicate unscoped caps, got %d", report.WarningCount())
	}
}

func TestValidate_DifferentScopesNoDuplicate(t *testing.T) {
	report := NewValidator().Validate(setOf(
		&ast.RateLimit{MaxRequests: 10, WindowSeconds: 60, Scope: scopeOf(ast.FieldAgentID)},
		&ast.RateLimit{MaxRequests: 10, WindowSeconds: 60, Scope: scopeOf(ast.FieldIPAddress)},
	))
	if len(report.Issues) != 0 {
		t.Errorf("different scopes are not duplicates: %v", report.Issues)
	}
}

func TestValidate_UnreachableScoped(t *testing.T) {
	report := NewValidator().Validate(setOf(
		&ast.RateLimit{MaxRequests: 100, WindowSeconds: 60},
		&ast.RateLimit{MaxRequests: 10, WindowSeconds: 60, Scope: scopeOf(ast.FieldAgentID)},
	))

	if report.WarningCount() != 1 {
		t.Fatalf("expected 1 warning, got %d (%v)", report.WarningCount(), report.Issues)
	}
	issue := report.BySeverity(SeverityWarning)[0]
	if !strings.Contains(issue.Message, "unreachable") {
		t.Errorf("expected unreachable message, got %q", issue.Message)
	}
}

func TestValidate_ScopedBeforeUnscopedIsFine(t *testing.T) {
	report := NewValidator().Validate(setOf(
		&ast.RateLimit{MaxRequests: 10, WindowSeconds: 60, Scope: scopeOf(ast.FieldAgentID)},
		&ast.RateLimit{MaxRequests: 100, WindowSeconds: 60},
	))
	if len(report.Issues) != 0 {
		t.Errorf("scoped-then-unscoped is reachable, got: %v", report.Issues)
	}
}

func TestValidate_MixedKindsNoStatefulConflict(t *testing.T) {
	report := NewValidator().Validate(setOf(
		&ast.RateLimit{MaxRequests: 10, WindowSeconds: 60},
		&ast.SpendingCap{MaxAmount: 10, Currency: "USD", WindowSeconds: 60, Scope: scopeOf(ast.FieldWalletAddress)},
	))
	if len(report.Issues) != 0 {
		t.Errorf("rate limit and spending cap never conflict: %v", report.Issues)
	}
}

func TestValidate_MalformedWildcard(t *testing.T) {
	tests := []struct {
		value string
		bad   bool
	}{
		{"agent-*", false},
		{"literal", false},
		{"*", false}, // matches everything, but the star is trailing
		{"*suffix", true},
		{"mid*dle", true},
		{"two**", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			report := NewValidator().Validate(setOf(
				&ast.Denylist{Field: ast.FieldAgentID, Values: []string{tt.value}},
			))
			if tt.bad && report.ErrorCount() != 1 {
				t.Errorf("expected malformed wildcard error for %q, got %v", tt.value, report.Issues)
			}
			if !tt.bad && report.ErrorCount() != 0 {
				t.Errorf("expected no error for %q, got %v", tt.value, report.Issues)
			}
		})
	}
}

func TestPatternsOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"a", "a", true},
		{"a", "b", false},
		{"a*", "abc", true},
		{"abc", "a*", true},
		{"a*", "b*", false},
		{"a*", "ab*", true},
		{"ab*", "a*", true},
		{"*", "anything", true},
		{"", "", true},
	}
	for _, tt := range tests {
		if got := patternsOverlap(tt.a, tt.b); got != tt.want {
			t.Errorf("patternsOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
