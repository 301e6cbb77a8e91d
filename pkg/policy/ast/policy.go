package ast

// SubjectField identifies the request attribute a policy is keyed on.
type SubjectField string

const (
	// FieldAgentID scopes a policy to the calling agent's identifier.
	FieldAgentID SubjectField = "agent_id"

	// FieldWalletAddress scopes a policy to the paying wallet address.
	FieldWalletAddress SubjectField = "wallet_address"

	// FieldIPAddress scopes a policy to the client IP address.
	FieldIPAddress SubjectField = "ip_address"
)

// IsValid returns true if the field is one of the known subject fields.
func (f SubjectField) IsValid() bool {
	switch f {
	case FieldAgentID, FieldWalletAddress, FieldIPAddress:
		return true
	}
	return false
}

// SubjectFields lists all valid subject fields in a stable order.
func SubjectFields() []SubjectField {
	return []SubjectField{FieldAgentID, FieldWalletAddress, FieldIPAddress}
}

// Kind identifies the policy variant.
type Kind string

const (
	KindAllowlist   Kind = "allowlist"
	KindDenylist    Kind = "denylist"
	KindRateLimit   Kind = "rate_limit"
	KindSpendingCap Kind = "spending_cap"
)

// Policy is a single declarative access-control rule.
//
// It is a closed sum over Allowlist, Denylist, RateLimit, and
// SpendingCap. The sealed() method keeps the set of implementations
// local to this package so consumers can type-switch exhaustively.
type Policy interface {
	// Kind returns the policy variant discriminator.
	Kind() Kind

	// Pos returns the source location of the policy in the document.
	Pos() Location

	sealed()
}

// Allowlist permits only the listed subject values.
//
// An allowlist only ever denies: a request whose subject value is
// present in Values continues to the next policy (a later denylist
// must still be able to override), while a request whose subject value
// is absent is denied. A request missing the subject value entirely
// does not fire the rule.
type Allowlist struct {
	Field    SubjectField
	Values   []string // literal values or trailing-"*" prefix patterns
	Location Location
}

func (p *Allowlist) Kind() Kind    { return KindAllowlist }
func (p *Allowlist) Pos() Location { return p.Location }
func (p *Allowlist) sealed()       {}

// Denylist denies the listed subject values.
type Denylist struct {
	Field    SubjectField
	Values   []string // literal values or trailing-"*" prefix patterns
	Location Location
}

func (p *Denylist) Kind() Kind    { return KindDenylist }
func (p *Denylist) Pos() Location { return p.Location }
func (p *Denylist) sealed()       {}

// RateLimit caps the number of requests per subject inside a sliding
// time window. Scope selects the subject field the limit is keyed on;
// a nil Scope applies one shared limit to all traffic.
type RateLimit struct {
	MaxRequests   uint32
	WindowSeconds uint32
	Scope         *SubjectField
	Location      Location
}

func (p *RateLimit) Kind() Kind    { return KindRateLimit }
func (p *RateLimit) Pos() Location { return p.Location }
func (p *RateLimit) sealed()       {}

// SpendingCap caps cumulative spend per subject inside a rolling time
// window. A nil Scope applies one shared cap to all traffic.
type SpendingCap struct {
	MaxAmount     float64
	Currency      string
	WindowSeconds uint32
	Scope         *SubjectField
	Location      Location
}

func (p *SpendingCap) Kind() Kind    { return KindSpendingCap }
func (p *SpendingCap) Pos() Location { return p.Location }
func (p *SpendingCap) sealed()       {}

// PolicySet is the parsed root document: an ordered sequence of
// policies. Insertion order is evaluation order and must be preserved.
type PolicySet struct {
	Policies   []Policy
	SourceFile string
}

// Len returns the number of policies in the set.
func (s *PolicySet) Len() int {
	return len(s.Policies)
}

// StatefulCount returns the number of rate-limit and spending-cap
// policies, the ones that consume runtime state.
func (s *PolicySet) StatefulCount() int {
	n := 0
	for _, p := range s.Policies {
		switch p.Kind() {
		case KindRateLimit, KindSpendingCap:
			n++
		}
	}
	return n
}
