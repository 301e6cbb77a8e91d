package parser

import (
	"fmt"
	"strings"

	"tollgate-hq/tollgate/pkg/policy/ast"
	"tollgate-hq/tollgate/pkg/policy/policyerr"
)

// builder transforms the intermediate YAML structures into the typed
// AST, accumulating schema errors across the whole document.
type builder struct {
	sourcePath string
	errors     *policyerr.ErrorList
}

func newBuilder(sourcePath string) *builder {
	return &builder{
		sourcePath: sourcePath,
		errors:     policyerr.NewErrorList(),
	}
}

// buildSet constructs the PolicySet from the intermediate document.
// On schema errors it returns the accumulated ErrorList.
func (b *builder) buildSet(doc *yamlDocument) (*ast.PolicySet, error) {
	set := &ast.PolicySet{
		SourceFile: b.sourcePath,
		Policies:   make([]ast.Policy, 0, len(doc.Policies)),
	}

	for i := range doc.Policies {
		if p := b.buildPolicy(&doc.Policies[i], i); p != nil {
			set.Policies = append(set.Policies, p)
		}
	}

	if err := b.errors.ToError(); err != nil {
		return nil, err
	}
	return set, nil
}

// buildPolicy constructs one policy, or records errors and returns nil.
func (b *builder) buildPolicy(y *yamlPolicy, index int) ast.Policy {
	loc := b.location(y)

	switch y.Type {
	case string(ast.KindAllowlist):
		return b.buildListPolicy(y, index, loc, true)
	case string(ast.KindDenylist):
		return b.buildListPolicy(y, index, loc, false)
	case string(ast.KindRateLimit):
		return b.buildRateLimit(y, index, loc)
	case string(ast.KindSpendingCap):
		return b.buildSpendingCap(y, index, loc)
	case "":
		b.errors.Add(policyerr.New(policyerr.KindMissingField,
			fmt.Sprintf("policy %d is missing required field \"type\"", index),
			loc,
		).WithSuggestion("set type to one of: allowlist, denylist, rate_limit, spending_cap"))
	default:
		b.errors.Add(policyerr.New(policyerr.KindUnknownPolicyType,
			fmt.Sprintf("policy %d has unknown type %q", index, y.Type),
			loc,
		).WithSuggestion("supported types: allowlist, denylist, rate_limit, spending_cap"))
	}
	return nil
}

func (b *builder) buildListPolicy(y *yamlPolicy, index int, loc ast.Location, allow bool) ast.Policy {
	if y.Field == "" {
		b.missingField(index, y.Type, "field", loc)
		return nil
	}
	field, ok := b.subjectField(y.Field, index, loc)
	if !ok {
		return nil
	}
	if len(y.Values) == 0 {
		b.missingField(index, y.Type, "values", loc)
		return nil
	}
	values := make([]string, len(y.Values))
	for i, v := range y.Values {
		values[i] = strings.TrimSpace(v)
	}
	if allow {
		return &ast.Allowlist{Field: field, Values: values, Location: loc}
	}
	return &ast.Denylist{Field: field, Values: values, Location: loc}
}

func (b *builder) buildRateLimit(y *yamlPolicy, index int, loc ast.Location) ast.Policy {
	if y.MaxRequests == nil {
		b.missingField(index, y.Type, "max_requests", loc)
		return nil
	}
	if y.WindowSeconds == nil {
		b.missingField(index, y.Type, "window_seconds", loc)
		return nil
	}
	if *y.MaxRequests == 0 || *y.WindowSeconds == 0 {
		b.errors.Add(policyerr.New(policyerr.KindInvalidValue,
			fmt.Sprintf("policy %d: max_requests and window_seconds must be positive", index),
			loc))
		return nil
	}
	scope, ok := b.scopeField(y.Scope, index, loc)
	if !ok {
		return nil
	}
	return &ast.RateLimit{
		MaxRequests:   *y.MaxRequests,
		WindowSeconds: *y.WindowSeconds,
		Scope:         scope,
		Location:      loc,
	}
}

func (b *builder) buildSpendingCap(y *yamlPolicy, index int, loc ast.Location) ast.Policy {
	if y.MaxAmount == nil {
		b.missingField(index, y.Type, "max_amount", loc)
		return nil
	}
	if y.Currency == "" {
		b.missingField(index, y.Type, "currency", loc)
		return nil
	}
	if y.WindowSeconds == nil {
		b.missingField(index, y.Type, "window_seconds", loc)
		return nil
	}
	if *y.MaxAmount <= 0 || *y.WindowSeconds == 0 {
		b.errors.Add(policyerr.New(policyerr.KindInvalidValue,
			fmt.Sprintf("policy %d: max_amount and window_seconds must be positive", index),
			loc))
		return nil
	}
	scope, ok := b.scopeField(y.Scope, index, loc)
	if !ok {
		return nil
	}
	return &ast.SpendingCap{
		MaxAmount:     *y.MaxAmount,
		Currency:      y.Currency,
		WindowSeconds: *y.WindowSeconds,
		Scope:         scope,
		Location:      loc,
	}
}

// subjectField validates a non-empty subject field name.
func (b *builder) subjectField(name string, index int, loc ast.Location) (ast.SubjectField, bool) {
	f := ast.SubjectField(name)
	if !f.IsValid() {
		b.errors.Add(policyerr.New(policyerr.KindInvalidValue,
			fmt.Sprintf("policy %d: unknown subject field %q", index, name),
			loc,
		).WithSuggestion("valid subject fields: agent_id, wallet_address, ip_address"))
		return "", false
	}
	return f, true
}

// scopeField validates the optional scope key, returning nil for unscoped.
func (b *builder) scopeField(name string, index int, loc ast.Location) (*ast.SubjectField, bool) {
	if name == "" {
		return nil, true
	}
	f, ok := b.subjectField(name, index, loc)
	if !ok {
		return nil, false
	}
	return &f, true
}

func (b *builder) missingField(index int, policyType, field string, loc ast.Location) {
	b.errors.Add(policyerr.New(policyerr.KindMissingField,
		fmt.Sprintf("policy %d (%s) is missing required field %q", index, policyType, field),
		loc))
}

// location extracts the source position of a policy entry.
func (b *builder) location(y *yamlPolicy) ast.Location {
	loc := ast.Location{File: b.sourcePath}
	if y.node != nil {
		loc.Line = y.node.Line
		loc.Column = y.node.Column
	}
	return loc
}
