package engine

import (
	"time"

	"tollgate-hq/tollgate/pkg/policy/ast"
)

// Request is the evaluation input for one inbound call. It is built by
// the serving layer from its own header and connection parsing, and is
// never retained beyond the evaluation call.
type Request struct {
	AgentID       string
	WalletAddress string
	IPAddress     string
	ResourcePath  string

	// Amount is the payment amount attached to the request, when any.
	// Nil means no spend: spending-cap policies do not fire.
	Amount *float64

	// Timestamp is the evaluation instant. The zero value means "now";
	// tests and the scenario runner inject synthetic clocks through it.
	Timestamp time.Time
}

// SubjectValue returns the request's value for a subject field, or
// ("", false) when the request does not carry it.
func (r *Request) SubjectValue(field ast.SubjectField) (string, bool) {
	var v string
	switch field {
	case ast.FieldAgentID:
		v = r.AgentID
	case ast.FieldWalletAddress:
		v = r.WalletAddress
	case ast.FieldIPAddress:
		v = r.IPAddress
	}
	return v, v != ""
}

// Outcome is the final verdict of an evaluation.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
)

// Decision is the result of evaluating one request. It is produced
// fresh per evaluation and immutable once returned.
type Decision struct {
	Outcome Outcome

	// RuleIndex is the 0-based index of the policy that produced the
	// decision, or -1 for the implicit default allow.
	RuleIndex int

	// Reason explains a deny in human-readable form.
	Reason string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// allowDefault is the implicit decision when no policy denies.
func allowDefault() Decision {
	return Decision{Outcome: OutcomeAllow, RuleIndex: -1}
}

func deny(index int, reason string) Decision {
	return Decision{Outcome: OutcomeDeny, RuleIndex: index, Reason: reason}
}
