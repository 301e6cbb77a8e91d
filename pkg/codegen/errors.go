package codegen

import "fmt"

// ErrorKind categorizes a generation failure.
type ErrorKind string

const (
	// KindUnsupportedFramework indicates a target framework with no
	// generator implementation.
	KindUnsupportedFramework ErrorKind = "unsupported_framework"

	// KindUnsupportedRule indicates a policy kind with no code
	// generation mapping.
	KindUnsupportedRule ErrorKind = "unsupported_rule"
)

// Error is a code generation failure. It is fatal to the single
// generation request only.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("codegen: %s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
