// internal/registers/table_test.go
package registers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	tbl, err := DefaultTable()
	require.NoError(t, err)

	assert.Equal(t, 12, tbl.Len())
	assert.Equal(t,
		[]Address{23, 26, 29, 32, 33, 40, 43, 50, 55, 58, 76, 91},
		tbl.Addresses(),
	)

	for _, a := range []Address{23, 26, 50, 91} {
		s, ok := tbl.Lookup(a)
		require.True(t, ok)
		assert.True(t, s.Signed, "address %d should be signed", a)
	}

	soc, ok := tbl.Lookup(33)
	require.True(t, ok)
	assert.Equal(t, "Battery SOC", soc.Name)
	assert.Equal(t, "%", soc.Unit)
	assert.False(t, soc.Signed)

	volts, _ := tbl.Lookup(43)
	assert.Equal(t, 0.1, volts.Scale)

	mode, _ := tbl.Lookup(29)
	require.True(t, mode.IsEnum())
	assert.Equal(t, "", mode.Unit)
	assert.Equal(t, "Charge topping", mode.Label(2))
	assert.Equal(t, "Unknown", mode.Label(3))
	assert.Equal(t, "Unknown", mode.Label(42))
}

func TestParseTable_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"missing registers": "version: 1\n",
		"wrong version":     "version: 2\nregisters:\n  - {address: 1, name: a, scale: 1}\n",
		"missing scale":     "version: 1\nregisters:\n  - {address: 1, name: a}\n",
		"zero scale":        "version: 1\nregisters:\n  - {address: 1, name: a, scale: 0}\n",
		"address too big":   "version: 1\nregisters:\n  - {address: 70000, name: a, scale: 1}\n",
		"unknown field":     "version: 1\nregisters:\n  - {address: 1, name: a, scale: 1, colour: red}\n",
		"empty name":        "version: 1\nregisters:\n  - {address: 1, name: \"\", scale: 1}\n",
		"not yaml":          "version: [1\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseTable_SemanticRejects(t *testing.T) {
	dupAddr := `
version: 1
registers:
  - {address: 1, name: a, scale: 1}
  - {address: 1, name: b, scale: 1}
`
	_, err := ParseTable([]byte(dupAddr))
	assert.Error(t, err)

	dupCode := `
version: 1
registers:
  - address: 1
    name: mode
    scale: 1
    enum:
      - {code: 1, label: a}
      - {code: 1, label: b}
`
	_, err = ParseTable([]byte(dupCode))
	assert.Error(t, err)
}

func TestLoadTable_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registers.yaml")
	doc := `
version: 1
registers:
  - {address: 7, name: Temp, unit: C, scale: 0.1, signed: true}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	tbl, err := LoadTable(path)
	require.NoError(t, err)

	s, ok := tbl.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, "Temp", s.Name)
	assert.True(t, s.Signed)

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadTable_EmptyPathIsDefault(t *testing.T) {
	tbl, err := LoadTable("")
	require.NoError(t, err)
	assert.Equal(t, 12, tbl.Len())
}

func TestNewTable_CopiesEnum(t *testing.T) {
	enum := map[int]string{1: "On"}
	tbl, err := NewTable([]Spec{{Address: 1, Name: "x", Scale: 1, Enum: enum}})
	require.NoError(t, err)

	enum[1] = "Off"
	s, _ := tbl.Lookup(1)
	assert.Equal(t, "On", s.Label(1))
}
