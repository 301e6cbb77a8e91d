// Package parser deserializes YAML policy documents into typed policy
// sets.
//
// Parsing is a pure transformation of text into the ast types: no side
// effects beyond reading the input. The parser is strict about the
// schema: an unknown policy type, a missing required field, or an
// empty document all fail with a policyerr.Error carrying the source
// location and a suggested fix. Problems accumulate across the whole
// document so a single run reports everything.
package parser
