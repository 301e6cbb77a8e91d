package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"tollgate-hq/tollgate/pkg/policy/ast"
)

// Marshal serializes a policy set back into its YAML document form.
// Marshal and ParseBytes round-trip: parsing the output yields a set
// equal to the input, with policy order preserved.
func Marshal(set *ast.PolicySet) ([]byte, error) {
	doc := yamlDocument{
		Policies: make([]yamlPolicy, 0, len(set.Policies)),
	}

	for i, p := range set.Policies {
		var y yamlPolicy
		switch p := p.(type) {
		case *ast.Allowlist:
			y.Type = string(ast.KindAllowlist)
			y.Field = string(p.Field)
			y.Values = p.Values
		case *ast.Denylist:
			y.Type = string(ast.KindDenylist)
			y.Field = string(p.Field)
			y.Values = p.Values
		case *ast.RateLimit:
			y.Type = string(ast.KindRateLimit)
			maxRequests, window := p.MaxRequests, p.WindowSeconds
			y.MaxRequests = &maxRequests
			y.WindowSeconds = &window
			if p.Scope != nil {
				y.Scope = string(*p.Scope)
			}
		case *ast.SpendingCap:
			y.Type = string(ast.KindSpendingCap)
			maxAmount, window := p.MaxAmount, p.WindowSeconds
			y.MaxAmount = &maxAmount
			y.Currency = p.Currency
			y.WindowSeconds = &window
			if p.Scope != nil {
				y.Scope = string(*p.Scope)
			}
		default:
			return nil, fmt.Errorf("cannot serialize policy %d: unknown kind %q", i, p.Kind())
		}
		doc.Policies = append(doc.Policies, y)
	}

	return yaml.Marshal(&doc)
}
