package engine

import (
	"fmt"
	"time"

	"tollgate-hq/tollgate/pkg/policy/ast"
	"tollgate-hq/tollgate/pkg/state"
)

// globalSubject keys the state of unscoped rate limits and spending
// caps: all traffic shares one window.
const globalSubject = "__global__"

// Engine evaluates requests against a policy set, consulting and
// mutating a state store for the stateful policy kinds.
type Engine struct {
	store   state.Store
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches Prometheus metrics to the engine.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine backed by the given state store.
func New(store state.Store, opts ...Option) *Engine {
	e := &Engine{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate walks the policy set in document order and returns the
// decision for req. It is safe for concurrent use: per-subject state
// updates serialize inside the store.
func (e *Engine) Evaluate(set *ast.PolicySet, req *Request) Decision {
	start := time.Now()
	now := req.Timestamp
	if now.IsZero() {
		now = start
	}

	decision := allowDefault()
	for i, p := range set.Policies {
		if d, denied := e.apply(p, i, req, now); denied {
			decision = d
			break
		}
	}

	if e.metrics != nil {
		e.metrics.observe(decision, set, time.Since(start))
	}
	return decision
}

// apply evaluates one policy. It returns (decision, true) when the
// policy denies; otherwise evaluation continues with the next policy.
func (e *Engine) apply(p ast.Policy, index int, req *Request, now time.Time) (Decision, bool) {
	switch p := p.(type) {
	case *ast.Allowlist:
		value, ok := req.SubjectValue(p.Field)
		if !ok {
			return Decision{}, false
		}
		if !ast.MatchAny(p.Values, value) {
			return deny(index, fmt.Sprintf("%s %q is not in the allowlist", p.Field, value)), true
		}
		return Decision{}, false

	case *ast.Denylist:
		value, ok := req.SubjectValue(p.Field)
		if !ok {
			return Decision{}, false
		}
		if ast.MatchAny(p.Values, value) {
			return deny(index, fmt.Sprintf("%s %q is denylisted", p.Field, value)), true
		}
		return Decision{}, false

	case *ast.RateLimit:
		subject, ok := e.subjectKey(p.Scope, req)
		if !ok {
			return Decision{}, false
		}
		window := e.store.Window(index, subject)
		span := time.Duration(p.WindowSeconds) * time.Second
		if !window.Allow(now, int(p.MaxRequests), span) {
			return deny(index, "rate limit exceeded"), true
		}
		return Decision{}, false

	case *ast.SpendingCap:
		if req.Amount == nil {
			return Decision{}, false
		}
		subject, ok := e.subjectKey(p.Scope, req)
		if !ok {
			return Decision{}, false
		}
		acc := e.store.Accumulator(index, subject)
		span := time.Duration(p.WindowSeconds) * time.Second
		if !acc.Spend(now, *req.Amount, p.MaxAmount, span) {
			return deny(index, "spending cap exceeded"), true
		}
		return Decision{}, false
	}

	// Unknown policy kinds cannot reach a built engine; treat as
	// non-matching rather than panicking on the hot path.
	return Decision{}, false
}

// subjectKey resolves the state key for a stateful policy: the scoped
// subject value, or the shared global key when unscoped. A scoped
// policy whose subject value is absent from the request does not fire.
func (e *Engine) subjectKey(scope *ast.SubjectField, req *Request) (string, bool) {
	if scope == nil {
		return globalSubject, true
	}
	return req.SubjectValue(*scope)
}
