// Package validator statically analyzes a parsed policy set for
// conflicts and structural problems before deployment.
//
// Validation is total: it always produces a Report, never an error.
// The report carries issues at three severities. Error-level issues
// (contradictory allow/deny entries, malformed wildcards) indicate a
// policy set that should not be deployed; Warning-level issues
// (shadowed or duplicate stateful rules) indicate dead weight that the
// engine will never fire.
//
// Because the engine short-circuits on the first matching rule in
// document order, several classes of problems are only visible across
// rule pairs; the validator checks every unordered pair.
package validator
