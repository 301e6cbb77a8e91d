// Package scenario runs policy test scenarios: named requests with
// expected decisions, replayed in order against a fresh engine.
//
// Scenario files are YAML:
//
//	scenarios:
//	  - name: "first request is allowed"
//	    request:
//	      agent_id: "agent-1"
//	      path: "/api/data"
//	    expect:
//	      outcome: allow
//	  - name: "second request hits the rate limit"
//	    request:
//	      agent_id: "agent-1"
//	      path: "/api/data"
//	      at_offset_seconds: 10
//	    expect:
//	      outcome: deny
//	      reason_contains: "rate limit"
//	      rule_index: 1
//
// Requests run sequentially against shared state, so scenarios can
// exercise rate limits and spending caps across steps. Timestamps are
// synthetic: at_offset_seconds offsets each request from a fixed base
// time, making runs deterministic.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Suite is a parsed scenario file.
type Suite struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario is one named request with its expected decision.
type Scenario struct {
	Name    string      `yaml:"name"`
	Request RequestSpec `yaml:"request"`
	Expect  Expectation `yaml:"expect"`
}

// RequestSpec describes the synthetic request to evaluate.
type RequestSpec struct {
	AgentID       string   `yaml:"agent_id,omitempty"`
	WalletAddress string   `yaml:"wallet_address,omitempty"`
	IPAddress     string   `yaml:"ip_address,omitempty"`
	Path          string   `yaml:"path,omitempty"`
	Amount        *float64 `yaml:"amount,omitempty"`

	// AtOffsetSeconds places the request this many seconds after the
	// run's base time. Steps may share an offset or go backwards;
	// they still execute in file order.
	AtOffsetSeconds int64 `yaml:"at_offset_seconds,omitempty"`
}

// Expectation is the decision a scenario expects.
type Expectation struct {
	// Outcome is "allow" or "deny".
	Outcome string `yaml:"outcome"`

	// ReasonContains, when set, must be a substring of the denial
	// reason.
	ReasonContains string `yaml:"reason_contains,omitempty"`

	// RuleIndex, when set, must equal the index of the denying
	// policy.
	RuleIndex *int `yaml:"rule_index,omitempty"`
}

// LoadSuite reads and parses a scenario file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %q: %w", path, err)
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %q: %w", path, err)
	}

	if len(suite.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario file %q contains no scenarios", path)
	}
	for i, s := range suite.Scenarios {
		if s.Name == "" {
			return nil, fmt.Errorf("scenario %d has no name", i)
		}
		switch s.Expect.Outcome {
		case "allow", "deny":
		default:
			return nil, fmt.Errorf("scenario %q: expect.outcome must be allow or deny, got %q", s.Name, s.Expect.Outcome)
		}
	}
	return &suite, nil
}
