package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"tollgate-hq/tollgate/pkg/policy/ast"
)

// header is the fixed generated-code banner. No timestamp: output must
// be byte-identical across runs.
const header = `// Code generated by tollgate (policy middleware generator). DO NOT EDIT.
//
// This middleware enforces the policy set it was generated from:
// rules are applied in order, the first denying rule wins, and the
// implicit default is allow. Rate-limit and spending-cap state lives
// in process memory and resets on restart.
//
// Subject extraction: agent id from the "x-agent-id" header, wallet
// address from "x-wallet-address", client IP from the framework, and
// the payment amount from the "x-payment-amount" header.
'use strict';
`

// writePolicies emits the policy set as a deterministic JS array
// literal. Field order is fixed per kind.
func writePolicies(sb *strings.Builder, set *ast.PolicySet) {
	sb.WriteString("const policies = [\n")
	for _, p := range set.Policies {
		kind := jsString(string(p.Kind()))
		switch p := p.(type) {
		case *ast.Allowlist:
			fmt.Fprintf(sb, "  { type: %s, field: %s, values: %s },\n",
				kind, jsString(string(p.Field)), jsStringArray(p.Values))
		case *ast.Denylist:
			fmt.Fprintf(sb, "  { type: %s, field: %s, values: %s },\n",
				kind, jsString(string(p.Field)), jsStringArray(p.Values))
		case *ast.RateLimit:
			fmt.Fprintf(sb, "  { type: %s, maxRequests: %d, windowSeconds: %d, scope: %s },\n",
				kind, p.MaxRequests, p.WindowSeconds, jsScope(p.Scope))
		case *ast.SpendingCap:
			fmt.Fprintf(sb, "  { type: %s, maxAmount: %s, currency: %s, windowSeconds: %d, scope: %s },\n",
				kind, jsNumber(p.MaxAmount), jsString(p.Currency), p.WindowSeconds, jsScope(p.Scope))
		}
	}
	sb.WriteString("];\n")
}

// runtime is the framework-independent evaluation core. It mirrors the
// engine: same match rules, same half-open rate-limit window, same
// lazy spending-cap reset, same "attempted use counts" state updates.
const runtime = `
const GLOBAL_SUBJECT = '__global__';

const rateWindows = new Map();
const spendTotals = new Map();

function matchValue(pattern, value) {
  if (pattern.endsWith('*') && pattern.indexOf('*') === pattern.length - 1) {
    return value.startsWith(pattern.slice(0, -1));
  }
  return pattern === value;
}

function matchAny(patterns, value) {
  return patterns.some((pattern) => matchValue(pattern, value));
}

function subjectValue(subject, field) {
  switch (field) {
    case 'agent_id':
      return subject.agentId;
    case 'wallet_address':
      return subject.walletAddress;
    case 'ip_address':
      return subject.ipAddress;
    default:
      return '';
  }
}

function stateKey(index, value) {
  return index + ':' + value;
}

function checkRateLimit(policy, index, value, nowMs) {
  const key = stateKey(index, value);
  let stamps = rateWindows.get(key);
  if (!stamps) {
    stamps = [];
    rateWindows.set(key, stamps);
  }
  // Half-open window: a timestamp exactly windowSeconds old is outside.
  const cutoff = nowMs - policy.windowSeconds * 1000;
  while (stamps.length > 0 && stamps[0] <= cutoff) {
    stamps.shift();
  }
  if (stamps.length >= policy.maxRequests) {
    return false;
  }
  stamps.push(nowMs);
  return true;
}

function checkSpendingCap(policy, index, value, amount, nowMs) {
  const key = stateKey(index, value);
  let acc = spendTotals.get(key);
  if (!acc) {
    acc = { total: 0, windowStart: nowMs };
    spendTotals.set(key, acc);
  }
  if (nowMs - acc.windowStart >= policy.windowSeconds * 1000) {
    acc.total = 0;
    acc.windowStart = nowMs;
  }
  if (acc.total + amount > policy.maxAmount) {
    return false;
  }
  acc.total += amount;
  return true;
}

function evaluate(subject, nowMs) {
  for (let i = 0; i < policies.length; i++) {
    const policy = policies[i];
    switch (policy.type) {
      case 'allowlist': {
        const value = subjectValue(subject, policy.field);
        if (!value) {
          break;
        }
        if (!matchAny(policy.values, value)) {
          return {
            outcome: 'deny',
            ruleIndex: i,
            reason: policy.field + ' "' + value + '" is not in the allowlist',
          };
        }
        break;
      }
      case 'denylist': {
        const value = subjectValue(subject, policy.field);
        if (!value) {
          break;
        }
        if (matchAny(policy.values, value)) {
          return {
            outcome: 'deny',
            ruleIndex: i,
            reason: policy.field + ' "' + value + '" is denylisted',
          };
        }
        break;
      }
      case 'rate_limit': {
        const value = policy.scope ? subjectValue(subject, policy.scope) : GLOBAL_SUBJECT;
        if (!value) {
          break;
        }
        if (!checkRateLimit(policy, i, value, nowMs)) {
          return { outcome: 'deny', ruleIndex: i, reason: 'rate limit exceeded' };
        }
        break;
      }
      case 'spending_cap': {
        if (subject.amount === null) {
          break;
        }
        const value = policy.scope ? subjectValue(subject, policy.scope) : GLOBAL_SUBJECT;
        if (!value) {
          break;
        }
        if (!checkSpendingCap(policy, i, value, subject.amount, nowMs)) {
          return { outcome: 'deny', ruleIndex: i, reason: 'spending cap exceeded' };
        }
        break;
      }
    }
  }
  return { outcome: 'allow', ruleIndex: -1, reason: null };
}

function headerValue(headers, name) {
  const value = headers[name];
  if (Array.isArray(value)) {
    return value.length > 0 ? value[0] : '';
  }
  return value || '';
}

function parseAmount(headers) {
  const raw = headerValue(headers, 'x-payment-amount');
  if (raw === '') {
    return null;
  }
  const amount = Number(raw);
  return Number.isFinite(amount) ? amount : null;
}
`

// jsString renders a double-quoted Go literal, which is also a valid
// JS string literal for the escape sequences strconv produces.
func jsString(s string) string {
	return strconv.Quote(s)
}

func jsStringArray(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = jsString(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func jsScope(scope *ast.SubjectField) string {
	if scope == nil {
		return "null"
	}
	return jsString(string(*scope))
}

// jsNumber renders a float without exponent notation surprises for the
// typical policy amounts, using the shortest round-trip form.
func jsNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
