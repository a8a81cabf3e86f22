// internal/registers/spec.go
package registers

import (
	"errors"
	"fmt"
	"sort"
)

// Address identifies one 16-bit input register as numbered by the device firmware.
type Address uint16

// UnknownLabel is reported for enum codes missing from the mapping.
const UnknownLabel = "Unknown"

// Spec describes how a raw word at one address becomes a domain value.
type Spec struct {
	Address Address
	Name    string
	Unit    string // empty: no unit
	Scale   float64
	Signed  bool
	Enum    map[int]string // nil: numeric register
}

// IsEnum reports whether the register maps codes to labels.
func (s Spec) IsEnum() bool { return s.Enum != nil }

// Label maps an enum code. Unknown codes map to UnknownLabel.
func (s Spec) Label(code int) string {
	if l, ok := s.Enum[code]; ok {
		return l
	}
	return UnknownLabel
}

// Table is the immutable register table.
// Built once at startup, never mutated afterwards.
type Table struct {
	specs map[Address]Spec
	order []Address
}

// NewTable builds a table from specs.
// Duplicate addresses, empty names and zero scale are rejected.
func NewTable(specs []Spec) (*Table, error) {
	if len(specs) == 0 {
		return nil, errors.New("registers: table is empty")
	}

	t := &Table{
		specs: make(map[Address]Spec, len(specs)),
		order: make([]Address, 0, len(specs)),
	}

	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("registers: address %d: name required", s.Address)
		}
		if s.Scale == 0 {
			return nil, fmt.Errorf("registers: address %d: scale must be non-zero", s.Address)
		}
		if _, dup := t.specs[s.Address]; dup {
			return nil, fmt.Errorf("registers: duplicate address %d", s.Address)
		}

		if s.Enum != nil {
			enum := make(map[int]string, len(s.Enum))
			for k, v := range s.Enum {
				enum[k] = v
			}
			s.Enum = enum
		}

		t.specs[s.Address] = s
		t.order = append(t.order, s.Address)
	}

	sort.Slice(t.order, func(i, j int) bool { return t.order[i] < t.order[j] })

	return t, nil
}

// Lookup returns the spec for addr.
func (t *Table) Lookup(addr Address) (Spec, bool) {
	s, ok := t.specs[addr]
	return s, ok
}

// Addresses returns the known addresses in ascending order.
func (t *Table) Addresses() []Address {
	out := make([]Address, len(t.order))
	copy(out, t.order)
	return out
}

// Specs returns the specs in ascending address order.
func (t *Table) Specs() []Spec {
	out := make([]Spec, 0, len(t.order))
	for _, a := range t.order {
		out = append(out, t.specs[a])
	}
	return out
}

// Len is the number of known registers.
func (t *Table) Len() int { return len(t.order) }
