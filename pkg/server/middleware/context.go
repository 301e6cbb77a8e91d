// Package middleware provides the HTTP middleware chain for the
// tollgate server: request IDs, structured request logging, and panic
// recovery.
package middleware

// contextKey is a private type for context values set by middleware.
type contextKey string

const (
	// RequestIDKey holds the request ID in the request context.
	RequestIDKey contextKey = "request_id"

	// StartTimeKey holds the request start time in the context.
	StartTimeKey contextKey = "start_time"
)
