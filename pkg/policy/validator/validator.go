package validator

import (
	"fmt"
	"strings"

	"tollgate-hq/tollgate/pkg/policy/ast"
)

// Validator runs static analysis over a parsed policy set.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate analyzes the set with a default validator.
func Validate(set *ast.PolicySet) *Report {
	return NewValidator().Validate(set)
}

// Validate analyzes the set and returns a report. It never fails; an
// empty or nil set simply yields a report with zero issues.
func (v *Validator) Validate(set *ast.PolicySet) *Report {
	report := &Report{}
	if set == nil {
		return report
	}

	v.checkWildcards(set, report)

	// Pairwise checks over every unordered pair, in document order so
	// issue output is deterministic.
	for i := 0; i < len(set.Policies); i++ {
		for j := i + 1; j < len(set.Policies); j++ {
			v.checkPair(set.Policies[i], set.Policies[j], i, j, report)
		}
	}

	return report
}

// checkWildcards flags values whose "*" is anywhere other than the
// trailing character.
func (v *Validator) checkWildcards(set *ast.PolicySet, report *Report) {
	for i, p := range set.Policies {
		var values []string
		switch p := p.(type) {
		case *ast.Allowlist:
			values = p.Values
		case *ast.Denylist:
			values = p.Values
		default:
			continue
		}
		for _, value := range values {
			star := strings.Index(value, "*")
			if star >= 0 && star != len(value)-1 {
				report.Add(Issue{
					Severity:   SeverityError,
					Message:    fmt.Sprintf("policy %d: malformed wildcard in value %q", i, value),
					Suggestion: "wildcards are only supported as a trailing suffix",
					Indices:    []int{i},
				})
			}
		}
	}
}

// checkPair applies the cross-rule conflict rules to one policy pair.
func (v *Validator) checkPair(a, b ast.Policy, i, j int, report *Report) {
	v.checkAllowDenyOverlap(a, b, i, j, report)
	v.checkDuplicateStateful(a, b, i, j, report)
	v.checkUnreachableScoped(a, b, i, j, report)
}

// checkAllowDenyOverlap flags an allowlist and denylist on the same
// subject field that share at least one value. With fail-fast
// evaluation the outcome for the shared value depends on rule order in
// a non-obvious way, so this is an error.
func (v *Validator) checkAllowDenyOverlap(a, b ast.Policy, i, j int, report *Report) {
	var allow *ast.Allowlist
	var deny *ast.Denylist

	switch pa := a.(type) {
	case *ast.Allowlist:
		if pd, ok := b.(*ast.Denylist); ok {
			allow, deny = pa, pd
		}
	case *ast.Denylist:
		if pAllow, ok := b.(*ast.Allowlist); ok {
			allow, deny = pAllow, pa
		}
	}
	if allow == nil || deny == nil || allow.Field != deny.Field {
		return
	}

	for _, av := range allow.Values {
		for _, dv := range deny.Values {
			if patternsOverlap(av, dv) {
				report.Add(Issue{
					Severity: SeverityError,
					Message: fmt.Sprintf(
						"policies %d and %d: allowlist value %q overlaps denylist value %q on field %s; the shared subject's outcome depends on rule order",
						i, j, av, dv, allow.Field),
					Suggestion: fmt.Sprintf("reorder or remove overlapping denylist/allowlist entries for value %q", dv),
					Indices:    []int{i, j},
				})
			}
		}
	}
}

// checkDuplicateStateful flags two rate limits (or two spending caps)
// with identical scope. The engine short-circuits on the first match,
// so the later rule never fires.
func (v *Validator) checkDuplicateStateful(a, b ast.Policy, i, j int, report *Report) {
	if a.Kind() != b.Kind() {
		return
	}

	var scopeA, scopeB *ast.SubjectField
	switch pa := a.(type) {
	case *ast.RateLimit:
		scopeA, scopeB = pa.Scope, b.(*ast.RateLimit).Scope
	case *ast.SpendingCap:
		scopeA, scopeB = pa.Scope, b.(*ast.SpendingCap).Scope
	default:
		return
	}

	if !sameScope(scopeA, scopeB) {
		return
	}

	report.Add(Issue{
		Severity: SeverityWarning,
		Message: fmt.Sprintf(
			"policies %d and %d: duplicate %s with identical scope; only policy %d can ever fire",
			i, j, a.Kind(), i),
		Suggestion: fmt.Sprintf("remove policy %d or give it a different scope", j),
		Indices:    []int{i, j},
	})
}

// checkUnreachableScoped flags an unscoped rate limit or spending cap
// appearing before a scoped one of the same kind: the unscoped rule
// matches all traffic first, so the scoped rule is unreachable.
func (v *Validator) checkUnreachableScoped(a, b ast.Policy, i, j int, report *Report) {
	if a.Kind() != b.Kind() {
		return
	}

	var scopeA, scopeB *ast.SubjectField
	switch pa := a.(type) {
	case *ast.RateLimit:
		scopeA, scopeB = pa.Scope, b.(*ast.RateLimit).Scope
	case *ast.SpendingCap:
		scopeA, scopeB = pa.Scope, b.(*ast.SpendingCap).Scope
	default:
		return
	}

	if scopeA != nil || scopeB == nil {
		return
	}

	report.Add(Issue{
		Severity: SeverityWarning,
		Message: fmt.Sprintf(
			"policy %d: scoped %s is unreachable behind the unscoped %s at policy %d",
			j, b.Kind(), a.Kind(), i),
		Suggestion: fmt.Sprintf("move policy %d before policy %d, or remove one of them", j, i),
		Indices:    []int{i, j},
	})
}

// patternsOverlap reports whether two allow/deny values can match a
// common subject. Two literals overlap only when equal. When a
// wildcard is involved, the comparison is conservative: the patterns
// overlap when one literal prefix is a prefix of the other.
func patternsOverlap(a, b string) bool {
	prefixA, wildA := ast.WildcardPrefix(a)
	prefixB, wildB := ast.WildcardPrefix(b)

	switch {
	case !wildA && !wildB:
		return a == b
	case wildA && !wildB:
		return strings.HasPrefix(b, prefixA)
	case !wildA && wildB:
		return strings.HasPrefix(a, prefixB)
	default:
		return strings.HasPrefix(prefixA, prefixB) || strings.HasPrefix(prefixB, prefixA)
	}
}

// sameScope compares two optional scopes for equality.
func sameScope(a, b *ast.SubjectField) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
