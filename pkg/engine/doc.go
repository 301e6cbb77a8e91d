// Package engine evaluates an incoming request against an ordered
// policy set and produces a single allow/deny decision.
//
// Evaluation walks the set in document order and stops at the first
// policy that denies; if nothing denies, the implicit default is allow.
// Allowlist and denylist policies only ever deny: an allowlist is a
// necessary-but-not-sufficient gate, not an automatic grant, so a
// subject present in an allowlist still continues to later policies.
//
// Rate-limit and spending-cap policies mutate runtime state as they
// are visited, even when a later policy ends up denying the request:
// an attempted spend counts. Evaluation itself is total: it performs
// no I/O, never blocks, and never fails; a request missing the value a
// policy needs simply does not fire that policy.
package engine
