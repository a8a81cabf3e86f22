// internal/registers/table.go
package registers

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed default_table.yaml
var defaultTableYAML []byte

//go:embed schema/register-table-v1.json
var tableSchemaJSON string

const tableSchemaName = "register-table-v1.json"

// ---- file format ----

type tableFile struct {
	Version   int            `yaml:"version"`
	Registers []registerFile `yaml:"registers"`
}

type registerFile struct {
	Address uint16      `yaml:"address"`
	Name    string      `yaml:"name"`
	Unit    string      `yaml:"unit"`
	Scale   float64     `yaml:"scale"`
	Signed  bool        `yaml:"signed"`
	Enum    []enumEntry `yaml:"enum"`
}

type enumEntry struct {
	Code  int    `yaml:"code"`
	Label string `yaml:"label"`
}

// DefaultTable returns the embedded table for the device.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultTableYAML)
}

// LoadTable reads a table file. An empty path yields the embedded table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registers: read table: %w", err)
	}

	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("registers: %s: %w", path, err)
	}
	return t, nil
}

// ParseTable validates YAML against the table schema and builds a Table.
func ParseTable(data []byte) (*Table, error) {
	if err := validateTable(data); err != nil {
		return nil, err
	}

	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registers: decode table: %w", err)
	}

	specs := make([]Spec, 0, len(f.Registers))
	for _, r := range f.Registers {
		s := Spec{
			Address: Address(r.Address),
			Name:    r.Name,
			Unit:    r.Unit,
			Scale:   r.Scale,
			Signed:  r.Signed,
		}
		if len(r.Enum) > 0 {
			s.Enum = make(map[int]string, len(r.Enum))
			for _, e := range r.Enum {
				if _, dup := s.Enum[e.Code]; dup {
					return nil, fmt.Errorf("registers: address %d: duplicate enum code %d", r.Address, e.Code)
				}
				s.Enum[e.Code] = e.Label
			}
		}
		specs = append(specs, s)
	}

	return NewTable(specs)
}

// validateTable checks the raw document against the embedded JSON schema.
// YAML is converted to its JSON form first so the schema sees JSON types.
func validateTable(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("registers: invalid YAML: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("registers: table is not JSON-compatible: %w", err)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("registers: invalid JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(tableSchemaName, strings.NewReader(tableSchemaJSON)); err != nil {
		return fmt.Errorf("registers: failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile(tableSchemaName)
	if err != nil {
		return fmt.Errorf("registers: failed to compile schema: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("registers: schema validation failed: %w", err)
	}

	return nil
}
