package ast

import "testing"

func TestMatchValue(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    bool
	}{
		{"agent-1", "agent-1", true},
		{"agent-1", "agent-2", false},
		{"agent-*", "agent-1", true},
		{"agent-*", "agent-", true},
		{"agent-*", "wallet-1", false},
		{"*", "anything", true},
		{"*", "", true},
		// Non-trailing stars are not wildcards; they only match literally.
		{"a*c", "abc", false},
		{"a*c", "a*c", true},
		{"a**", "abc", false},
	}
	for _, tt := range tests {
		if got := MatchValue(tt.pattern, tt.value); got != tt.want {
			t.Errorf("MatchValue(%q, %q) = %v, want %v", tt.pattern, tt.value, got, tt.want)
		}
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"agent-1", "team-*"}
	if !MatchAny(patterns, "agent-1") {
		t.Error("exact member should match")
	}
	if !MatchAny(patterns, "team-eu") {
		t.Error("wildcard member should match")
	}
	if MatchAny(patterns, "agent-2") {
		t.Error("non-member should not match")
	}
	if MatchAny(nil, "agent-1") {
		t.Error("empty pattern list matches nothing")
	}
}

func TestWildcardPrefix(t *testing.T) {
	if prefix, ok := WildcardPrefix("agent-*"); !ok || prefix != "agent-" {
		t.Errorf("WildcardPrefix(agent-*) = %q, %v", prefix, ok)
	}
	if _, ok := WildcardPrefix("agent-1"); ok {
		t.Error("literal must not report a wildcard prefix")
	}
	if _, ok := WildcardPrefix("a*c"); ok {
		t.Error("non-trailing star is not a wildcard")
	}
}

func TestSubjectFieldIsValid(t *testing.T) {
	for _, f := range SubjectFields() {
		if !f.IsValid() {
			t.Errorf("%s should be valid", f)
		}
	}
	if SubjectField("user_name").IsValid() {
		t.Error("unknown field should be invalid")
	}
}
