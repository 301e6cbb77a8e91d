package ast

import "fmt"

// Location is the source position of a policy in the original document.
// It enables error reporting with file, line, and column information.
type Location struct {
	File   string // path to the policy file
	Line   int    // 1-based line number
	Column int    // 1-based column number
}

// String returns "file:line:column", or "<unknown>" when no file is set.
func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsValid returns true if the location carries file and line information.
func (l Location) IsValid() bool {
	return l.File != "" && l.Line > 0
}
