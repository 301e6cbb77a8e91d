// Package audit defines the decision audit trail: every policy
// evaluation the server performs can be recorded for later review.
package audit

import (
	"context"
	"time"
)

// Record is one audited policy decision.
type Record struct {
	// ID is a UUID assigned when the record is created.
	ID string `json:"id"`

	// RequestID ties the record to the HTTP request that produced it.
	RequestID string `json:"request_id"`

	// Time is when the decision was made.
	Time time.Time `json:"time"`

	// Subject identity as seen by the engine. Empty fields were not
	// present on the request.
	AgentID       string `json:"agent_id,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	IPAddress     string `json:"ip_address,omitempty"`

	// Path is the resource that was requested.
	Path string `json:"path"`

	// Amount is the payment amount attached to the request, if any.
	Amount *float64 `json:"amount,omitempty"`

	// Outcome is "allow" or "deny".
	Outcome string `json:"outcome"`

	// RuleIndex is the ordinal of the policy that denied, or -1 for
	// an allow.
	RuleIndex int `json:"rule_index"`

	// Reason is the denial reason, empty for allows.
	Reason string `json:"reason,omitempty"`
}

// Query filters records for retrieval.
type Query struct {
	// Since/Until bound Record.Time. Zero values are unbounded.
	Since time.Time
	Until time.Time

	// Outcome filters by "allow" or "deny". Empty matches both.
	Outcome string

	// AgentID filters by exact agent. Empty matches all.
	AgentID string

	// Limit caps the number of returned records. Zero means the
	// backend default (100).
	Limit int
}

// Storage persists audit records. Implementations must be safe for
// concurrent use.
type Storage interface {
	Store(ctx context.Context, record *Record) error
	Query(ctx context.Context, query *Query) ([]*Record, error)
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes records with Time before cutoff and
	// reports how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
