// Package ast defines the typed, in-memory representation of a parsed
// policy document.
//
// A policy document is an ordered sequence of access-control rules over
// four kinds: allowlist, denylist, rate limit, and spending cap. The
// ordering is significant: the engine evaluates policies in document
// order and stops at the first deny.
//
// Policy is a closed sum type: each kind is a concrete struct that
// implements the Policy interface, and consumers (engine, validator,
// code generator) switch exhaustively on the concrete type. Adding a
// new policy kind is a localized change: one struct here plus one case
// in each consumer.
package ast
