package parser

import (
	"gopkg.in/yaml.v3"
)

// yamlDocument is the intermediate structure a policy document decodes
// into before AST construction. It matches the YAML schema directly.
type yamlDocument struct {
	Policies []yamlPolicy `yaml:"policies"`
}

// yamlPolicy is the intermediate form of a single policy entry.
// Numeric fields are pointers so "absent" and "zero" are distinguishable
// when checking required fields per policy type.
type yamlPolicy struct {
	Type          string   `yaml:"type"`
	Field         string   `yaml:"field,omitempty"`
	Values        []string `yaml:"values,omitempty"`
	MaxRequests   *uint32  `yaml:"max_requests,omitempty"`
	WindowSeconds *uint32  `yaml:"window_seconds,omitempty"`
	MaxAmount     *float64 `yaml:"max_amount,omitempty"`
	Currency      string   `yaml:"currency,omitempty"`
	Scope         string   `yaml:"scope,omitempty"`

	// node preserves the original YAML node for line numbers.
	node *yaml.Node
}

// decodeDocument parses raw YAML into the intermediate document,
// preserving per-policy source nodes for error reporting.
func decodeDocument(data []byte) (*yamlDocument, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	var doc yamlDocument
	if err := root.Decode(&doc); err != nil {
		return nil, err
	}

	// Re-walk the node tree to attach per-entry nodes. The root node
	// wraps a single document node containing the mapping.
	if seq := findPoliciesNode(&root); seq != nil {
		for i := range doc.Policies {
			if i < len(seq.Content) {
				doc.Policies[i].node = seq.Content[i]
			}
		}
	}

	return &doc, nil
}

// findPoliciesNode locates the sequence node for the top-level
// "policies" key, or nil if the document has no such key.
func findPoliciesNode(root *yaml.Node) *yaml.Node {
	node := root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "policies" {
			value := node.Content[i+1]
			if value.Kind == yaml.SequenceNode {
				return value
			}
			return nil
		}
	}
	return nil
}
