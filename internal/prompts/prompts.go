// Package prompts holds the LLM system prompts and canned fallback replies.
// The catalog is YAML, validated against an embedded JSON schema.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/vbonduro/farmguide/internal/domain"
)

//go:embed default.yaml
var defaultYAML []byte

//go:embed schema.json
var schemaJSON string

type Catalog struct {
	System           map[domain.FarmingContext]string `yaml:"system"`
	InventoryCommand string                           `yaml:"inventory_command"`
	Vision           string                           `yaml:"vision"`
	Fallback         Fallbacks                        `yaml:"fallback"`
}

type Fallbacks struct {
	LeafYellowing    string `yaml:"leaf_yellowing"`
	PestAttack       string `yaml:"pest_attack"`
	DiagnosisDetails string `yaml:"diagnosis_details"`
	Inventory        string `yaml:"inventory"`
	General          string `yaml:"general"`
}

// SystemPrompt returns the system prompt for fc, using the diagnosis prompt
// for unknown contexts.
func (c *Catalog) SystemPrompt(fc domain.FarmingContext) string {
	if p, ok := c.System[fc]; ok {
		return p
	}
	return c.System[domain.ContextDiagnosis]
}

// InventoryCommandPrompt wraps a transcript in the parse-to-JSON instruction.
func (c *Catalog) InventoryCommandPrompt(command string) string {
	return strings.ReplaceAll(c.InventoryCommand, "{{command}}", command)
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded prompt catalog is invalid: %v", err))
	}
	return c
}

// Load reads and validates a catalog file. An empty path yields Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates raw YAML against the catalog schema and decodes it.
func Parse(data []byte) (*Catalog, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	schema, err := jsonschema.CompileString("prompts.schema.json", schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compile prompt schema: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("prompt catalog validation failed: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode prompt catalog: %w", err)
	}
	return &c, nil
}
