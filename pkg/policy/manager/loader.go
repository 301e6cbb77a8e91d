// Package manager loads policy files and keeps the active policy set
// current, with optional hot reload through fsnotify.
package manager

import (
	"fmt"
	"time"

	"tollgate-hq/tollgate/pkg/policy/ast"
	"tollgate-hq/tollgate/pkg/policy/parser"
	"tollgate-hq/tollgate/pkg/policy/validator"
)

// Snapshot is one successfully loaded policy set together with its
// validation report.
type Snapshot struct {
	Set      *ast.PolicySet
	Report   *validator.Report
	Version  uint64
	LoadedAt time.Time
}

// LoaderConfig controls how the loader treats validation results.
type LoaderConfig struct {
	// AllowInvalid accepts sets whose validation report contains
	// errors. Warnings never block a load.
	AllowInvalid bool
}

// Loader parses and validates a policy file into a Snapshot.
type Loader struct {
	parser *parser.Parser
	config LoaderConfig
}

// NewLoader creates a loader around the given parser. A nil parser
// gets the default one.
func NewLoader(p *parser.Parser, config LoaderConfig) *Loader {
	if p == nil {
		p = parser.NewParser()
	}
	return &Loader{parser: p, config: config}
}

// Load parses and validates the policy file at path. Parse errors
// always fail the load. Validation errors fail it unless AllowInvalid
// is set; the report is returned either way.
func (l *Loader) Load(path string) (*Snapshot, error) {
	set, err := l.parser.Parse(path)
	if err != nil {
		return nil, err
	}

	report := validator.Validate(set)
	if !report.IsValid() && !l.config.AllowInvalid {
		return nil, fmt.Errorf("policy file %q has %d validation error(s)", path, report.ErrorCount())
	}

	return &Snapshot{
		Set:      set,
		Report:   report,
		LoadedAt: time.Now(),
	}, nil
}
