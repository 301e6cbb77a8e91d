package parser

import (
	"fmt"
	"os"

	"tollgate-hq/tollgate/pkg/policy/ast"
	"tollgate-hq/tollgate/pkg/policy/policyerr"
)

// Parser parses policy documents into typed policy sets.
type Parser struct {
	maxFileSize int64
}

// NewParser creates a parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: 1 * 1024 * 1024, // 1MB; policy files are small
	}
}

// WithMaxFileSize sets the maximum accepted document size.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// Parse reads and parses the policy file at path.
func (p *Parser) Parse(path string) (*ast.PolicySet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, policyerr.New(policyerr.KindIO,
			fmt.Sprintf("failed to access policy file: %v", err),
			ast.Location{File: path})
	}
	if info.Size() > p.maxFileSize {
		return nil, policyerr.New(policyerr.KindIO,
			fmt.Sprintf("policy file size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			ast.Location{File: path})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, policyerr.New(policyerr.KindIO,
			fmt.Sprintf("failed to read policy file: %v", err),
			ast.Location{File: path})
	}

	return p.ParseBytes(data, path)
}

// ParseBytes parses a policy document from memory. sourcePath is used
// only for error locations.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.PolicySet, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, policyerr.New(policyerr.KindIO,
			fmt.Sprintf("document size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			ast.Location{File: sourcePath})
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, policyerr.New(policyerr.KindSyntax,
			fmt.Sprintf("YAML parsing failed: %v", err),
			ast.Location{File: sourcePath, Line: 1, Column: 1},
		).WithSuggestion("check YAML syntax (indentation, colons, quotes)")
	}

	if len(doc.Policies) == 0 {
		return nil, policyerr.New(policyerr.KindEmptyPolicySet,
			"policy document contains no policies",
			ast.Location{File: sourcePath, Line: 1, Column: 1},
		).WithSuggestion("add at least one entry under the top-level \"policies\" key")
	}

	b := newBuilder(sourcePath)
	set, err := b.buildSet(doc)
	if err != nil {
		return nil, err
	}
	return set, nil
}
