// Package codegen transforms a parsed policy set into equivalent
// middleware source code for a target web framework.
//
// The generated JavaScript reimplements the engine's evaluation
// semantics (document order, first-deny short-circuit, allowlists and
// denylists that only ever deny, sliding-window rate limits, windowed
// spending caps) with in-process Maps as state, since the emitted
// middleware runs in the caller's own process and cannot share this
// engine's state store.
//
// Output is deterministic: the same policy set and framework always
// produce byte-identical source. The header comment names the
// generator but carries no timestamp.
package codegen
