package codegen

import (
	"errors"
	"strings"
	"testing"

	"tollgate-hq/tollgate/pkg/policy/ast"
)

func scopeOf(f ast.SubjectField) *ast.SubjectField {
	return &f
}

func sampleSet() *ast.PolicySet {
	return &ast.PolicySet{
		SourceFile: "policies.yaml",
		Policies: []ast.Policy{
			&ast.Allowlist{Field: ast.FieldAgentID, Values: []string{"agent-1", "team-*"}},
			&ast.Denylist{Field: ast.FieldIPAddress, Values: []string{"10.0.0.1"}},
			&ast.RateLimit{MaxRequests: 100, WindowSeconds: 60, Scope: scopeOf(ast.FieldAgentID)},
			&ast.SpendingCap{MaxAmount: 25.5, Currency: "USD", WindowSeconds: 3600, Scope: scopeOf(ast.FieldWalletAddress)},
			&ast.RateLimit{MaxRequests: 1000, WindowSeconds: 60},
		},
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	for _, framework := range []Framework{FrameworkExpress, FrameworkFastify} {
		t.Run(string(framework), func(t *testing.T) {
			first, err := Generate(sampleSet(), framework)
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			second, err := Generate(sampleSet(), framework)
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if first != second {
				t.Error("identical input must produce byte-identical output")
			}
		})
	}
}

func TestGenerate_FrameworksDiffer(t *testing.T) {
	express, err := Generate(sampleSet(), FrameworkExpress)
	if err != nil {
		t.Fatalf("express: %v", err)
	}
	fastify, err := Generate(sampleSet(), FrameworkFastify)
	if err != nil {
		t.Fatalf("fastify: %v", err)
	}
	if express == fastify {
		t.Error("express and fastify output must differ")
	}
}

func TestGenerate_ExpressShape(t *testing.T) {
	out, err := Generate(sampleSet(), FrameworkExpress)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, want := range []string{
		"// Code generated by tollgate",
		"'use strict';",
		"const policies = [",
		"{ type: \"allowlist\"",
		"module.exports = function tollgatePolicy(req, res, next)",
		"res.status(403).json(",
		"next();",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("express output missing %q", want)
		}
	}
}

func TestGenerate_FastifyShape(t *testing.T) {
	out, err := Generate(sampleSet(), FrameworkFastify)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, want := range []string{
		"async function tollgatePolicy(fastify, opts)",
		"fastify.addHook('onRequest'",
		"reply.code(403).send(",
		"module.exports = tollgatePolicy;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("fastify output missing %q", want)
		}
	}
}

func TestGenerate_EmbedsAllPolicies(t *testing.T) {
	out, err := Generate(sampleSet(), FrameworkExpress)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, want := range []string{
		`type: "allowlist"`,
		`type: "denylist"`,
		`type: "rate_limit"`,
		`type: "spending_cap"`,
		`"team-*"`,
		`maxRequests: 100`,
		`maxAmount: 25.5`,
		`currency: "USD"`,
		`scope: null`,
		`scope: "wallet_address"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing policy data %q", want)
		}
	}
}

func TestGenerate_RuntimeSemanticsPresent(t *testing.T) {
	// The emitted runtime must carry the engine's semantics: half-open
	// rate windows, lazy spending reset, no-add-on-deny, default allow.
	out, err := Generate(sampleSet(), FrameworkFastify)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, want := range []string{
		"stamps[0] <= cutoff",                        // half-open boundary
		"acc.total + amount > policy.maxAmount",      // cap check before add
		"nowMs - acc.windowStart >= policy.windowSeconds * 1000", // lazy reset
		"{ outcome: 'allow', ruleIndex: -1",          // default allow
		"GLOBAL_SUBJECT",                             // unscoped shared key
	} {
		if !strings.Contains(out, want) {
			t.Errorf("runtime missing %q", want)
		}
	}
}

func TestGenerate_NoTimestamp(t *testing.T) {
	out, err := Generate(sampleSet(), FrameworkExpress)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, forbidden := range []string{"Generated at", "Date:", "new Date().toISOString()"} {
		if strings.Contains(out, forbidden) {
			t.Errorf("output must not embed a generation timestamp, found %q", forbidden)
		}
	}
}

func TestGenerate_UnsupportedFramework(t *testing.T) {
	_, err := Generate(sampleSet(), Framework("koa"))
	if err == nil {
		t.Fatal("expected error for unsupported framework")
	}
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindUnsupportedFramework {
		t.Errorf("expected unsupported_framework, got %v", err)
	}
}

func TestParseFramework(t *testing.T) {
	if fw, err := ParseFramework("express"); err != nil || fw != FrameworkExpress {
		t.Errorf("ParseFramework(express) = %v, %v", fw, err)
	}
	if fw, err := ParseFramework("fastify"); err != nil || fw != FrameworkFastify {
		t.Errorf("ParseFramework(fastify) = %v, %v", fw, err)
	}
	if _, err := ParseFramework("rails"); err == nil {
		t.Error("expected error for unknown framework name")
	}
}

func TestJSString_EscapesQuotes(t *testing.T) {
	out := jsString(`va"lue`)
	if out != `"va\"lue"` {
		t.Errorf("jsString escaping broken: %s", out)
	}
}

func TestJSNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{10, "10"},
		{25.5, "25.5"},
		{0.01, "0.01"},
	}
	for _, tt := range tests {
		if got := jsNumber(tt.in); got != tt.want {
			t.Errorf("jsNumber(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
