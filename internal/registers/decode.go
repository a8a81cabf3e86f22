// internal/registers/decode.go
package registers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch reports a raw block whose length differs from the requested count.
var ErrLengthMismatch = errors.New("registers: block length mismatch")

// Block is one raw read: the requested start and count, and the words returned.
// Consumed once by Decode.
type Block struct {
	Start uint16
	Count uint16
	Words []uint16
}

// Kind tells which field of a Value is meaningful.
type Kind uint8

const (
	KindRaw    Kind = iota // unmapped address, raw word kept
	KindNumber             // signed-corrected and scaled
	KindLabel              // enum label
)

// Value is one decoded register.
type Value struct {
	Kind   Kind
	Raw    uint16
	Number float64
	Label  string
}

// Any returns the value as uint16, float64 or string depending on Kind.
func (v Value) Any() any {
	switch v.Kind {
	case KindNumber:
		return v.Number
	case KindLabel:
		return v.Label
	default:
		return v.Raw
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// Values maps address to decoded value.
type Values map[Address]Value

// Mapped returns only the addresses known to t.
func (vs Values) Mapped(t *Table) Values {
	out := make(Values, t.Len())
	for a, v := range vs {
		if _, ok := t.Lookup(a); ok {
			out[a] = v
		}
	}
	return out
}

// Clone returns an independent copy.
func (vs Values) Clone() Values {
	if vs == nil {
		return nil
	}
	out := make(Values, len(vs))
	for a, v := range vs {
		out[a] = v
	}
	return out
}

// Decode converts a raw block into values.
// Word i is reported by the device at address Start+i+1.
// Addresses missing from t are kept raw.
// No IO. No side effects.
func Decode(b Block, t *Table) (Values, error) {
	if len(b.Words) != int(b.Count) {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrLengthMismatch, len(b.Words), b.Count)
	}
	if uint32(b.Start)+uint32(b.Count) > math.MaxUint16 {
		return nil, fmt.Errorf("registers: block %d+%d exceeds address space", b.Start, b.Count)
	}

	out := make(Values, len(b.Words))

	for i, raw := range b.Words {
		addr := Address(uint32(b.Start) + uint32(i) + 1)

		spec, ok := t.Lookup(addr)
		if !ok {
			out[addr] = Value{Kind: KindRaw, Raw: raw}
			continue
		}

		out[addr] = DecodeWord(spec, raw)
	}

	return out, nil
}

// DecodeWord applies one spec to one raw word.
func DecodeWord(s Spec, raw uint16) Value {
	n := int(raw)
	if s.Signed {
		n = Signed(raw)
	}

	if s.IsEnum() {
		return Value{Kind: KindLabel, Raw: raw, Label: s.Label(n)}
	}

	return Value{Kind: KindNumber, Raw: raw, Number: Round3(float64(n) * s.Scale)}
}

// Signed reinterprets a word as two's complement.
func Signed(raw uint16) int {
	if raw >= 0x8000 {
		return int(raw) - 0x10000
	}
	return int(raw)
}

// Round3 rounds to 3 decimal digits.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
