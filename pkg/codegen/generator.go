package codegen

import (
	"tollgate-hq/tollgate/pkg/policy/ast"
)

// Framework identifies a code generation target.
type Framework string

const (
	// FrameworkExpress emits an Express middleware function.
	FrameworkExpress Framework = "express"

	// FrameworkFastify emits a Fastify plugin.
	FrameworkFastify Framework = "fastify"
)

// ParseFramework resolves a framework name from user input.
func ParseFramework(name string) (Framework, error) {
	switch Framework(name) {
	case FrameworkExpress:
		return FrameworkExpress, nil
	case FrameworkFastify:
		return FrameworkFastify, nil
	}
	return "", newError(KindUnsupportedFramework,
		"unknown framework %q (supported: express, fastify)", name)
}

// Generate emits middleware source for the policy set in the target
// framework's convention. Identical inputs always produce byte-identical
// output.
func Generate(set *ast.PolicySet, framework Framework) (string, error) {
	// Reject policy kinds with no codegen mapping up front, before any
	// output is assembled.
	for i, p := range set.Policies {
		switch p.(type) {
		case *ast.Allowlist, *ast.Denylist, *ast.RateLimit, *ast.SpendingCap:
		default:
			return "", newError(KindUnsupportedRule,
				"policy %d has kind %q, which has no code generation mapping", i, p.Kind())
		}
	}

	switch framework {
	case FrameworkExpress:
		return generateExpress(set), nil
	case FrameworkFastify:
		return generateFastify(set), nil
	}
	return "", newError(KindUnsupportedFramework,
		"no generator for framework %q", framework)
}
