package policy

import (
	"fmt"
	"os"

	"github.com/rolefirst/guardrail/core/infra/schema"
	"gopkg.in/yaml.v3"
)

// Wildcard matches any intent in an allow/deny list, or stands for the
// all-resources sentinel in an intent's resource set. It is a literal
// membership check, not a glob pattern.
const Wildcard = "*"

// AttributeMatch is a single required attribute key/value pair.
type AttributeMatch struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
}

// IntentRule describes what an intent touches and what it demands from the
// request context.
type IntentRule struct {
	Resources          []string         `yaml:"resources" json:"resources"`
	RequiresAttributes []AttributeMatch `yaml:"requires_attributes" json:"requires_attributes,omitempty"`
	PII                bool             `yaml:"pii" json:"pii"`
	BreakGlass         bool             `yaml:"break_glass" json:"break_glass"`
}

// RoleRule lists the intents a role may or may not exercise. A role with a
// non-empty BreakGlassRequires list may reach break-glass intents when every
// listed attribute is present on the request.
type RoleRule struct {
	Allow              []string `yaml:"allow" json:"allow"`
	Deny               []string `yaml:"deny" json:"deny"`
	BreakGlassRequires []string `yaml:"break_glass_requires" json:"break_glass_requires,omitempty"`
}

// Document is an immutable, validated policy document. It is loaded once and
// shared read-only across concurrent evaluations.
type Document struct {
	Version string                `yaml:"policy_version" json:"policy_version"`
	Intents map[string]IntentRule `yaml:"intents" json:"intents"`
	Roles   map[string]RoleRule   `yaml:"roles" json:"roles"`
}

// Parse decodes and validates a policy document from YAML bytes.
func Parse(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("policy document is empty")
	}
	if err := validateDocumentSchema(data); err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse policy document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and validates the policy document at path. A missing or invalid
// document is a configuration error; the caller must not serve without one.
func Load(path string) (*Document, error) {
	// #nosec G304 -- policy path is operator-provided.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy document %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("policy document %s: %w", path, err)
	}
	return doc, nil
}

// Validate applies the semantic checks the JSON schema cannot express.
func (d *Document) Validate() error {
	if len(d.Intents) == 0 {
		return fmt.Errorf("policy document declares no intents")
	}
	if len(d.Roles) == 0 {
		return fmt.Errorf("policy document declares no roles")
	}
	for name, rule := range d.Intents {
		for _, req := range rule.RequiresAttributes {
			if req.Key == "" || req.Value == "" {
				return fmt.Errorf("intent %q has an empty attribute requirement", name)
			}
		}
	}
	for name, rule := range d.Roles {
		if err := d.checkIntentRefs(name, "allow", rule.Allow); err != nil {
			return err
		}
		if err := d.checkIntentRefs(name, "deny", rule.Deny); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) checkIntentRefs(role, list string, refs []string) error {
	for _, ref := range refs {
		if ref == Wildcard {
			continue
		}
		if _, ok := d.Intents[ref]; !ok {
			return fmt.Errorf("role %q %s list references unknown intent %q", role, list, ref)
		}
	}
	return nil
}

func validateDocumentSchema(data []byte) error {
	schemaBytes, err := schemaFS.ReadFile(documentSchemaFile)
	if err != nil {
		return fmt.Errorf("load policy schema: %w", err)
	}
	var payload any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse policy document: %w", err)
	}
	if err := schema.Validate("policy-document", schemaBytes, payload); err != nil {
		return fmt.Errorf("validate policy document: %w", err)
	}
	return nil
}
