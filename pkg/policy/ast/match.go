package ast

import "strings"

// MatchValue reports whether value matches pattern. A pattern ending in
// "*" matches any value with the literal prefix before the star;
// anything else is an exact match. A "*" anywhere other than the
// trailing position is never treated as a wildcard (the validator
// rejects such patterns).
func MatchValue(pattern, value string) bool {
	if prefix, ok := WildcardPrefix(pattern); ok {
		return strings.HasPrefix(value, prefix)
	}
	return pattern == value
}

// MatchAny reports whether value matches any of the patterns.
func MatchAny(patterns []string, value string) bool {
	for _, p := range patterns {
		if MatchValue(p, value) {
			return true
		}
	}
	return false
}

// WildcardPrefix returns the literal prefix of a trailing-wildcard
// pattern and true, or ("", false) for a plain literal.
func WildcardPrefix(pattern string) (string, bool) {
	if strings.HasSuffix(pattern, "*") && strings.Count(pattern, "*") == 1 {
		return strings.TrimSuffix(pattern, "*"), true
	}
	return "", false
}
