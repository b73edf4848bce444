package bom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()

	assert.Equal(t, 3, table.ProbeSize())
	assert.Equal(t, 2, table.MinSize())
	require.Len(t, table.Signatures(), 3)
}

func TestTable_Match(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name  string
		probe []byte
		want  []Encoding
	}{
		{"utf8", []byte{0xEF, 0xBB, 0xBF}, []Encoding{UTF8}},
		{"utf16le", []byte{0xFF, 0xFE, 'a'}, []Encoding{UTF16LE}},
		{"utf16be", []byte{0xFE, 0xFF, '?'}, []Encoding{UTF16BE}},
		{"partial utf8", []byte{0xEF, 0xBB, 'x'}, nil},
		{"plain", []byte("abc"), nil},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Encoding
			for _, s := range table.Match(tt.probe) {
				got = append(got, s.Encoding)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTable_MatchReportsEveryOverlap(t *testing.T) {
	table := NewTable(
		Signature{UTF16LE, []byte{0xFF, 0xFE}},
		Signature{UTF8, []byte{0xFF, 0xFE, 0x00}},
	)

	got := table.Match([]byte{0xFF, 0xFE, 0x00})
	require.Len(t, got, 2)
	assert.Equal(t, UTF16LE, got[0].Encoding)
	assert.Equal(t, UTF8, got[1].Encoding)
}

func TestNewTable_CopiesInput(t *testing.T) {
	raw := []byte{0xEF, 0xBB, 0xBF}
	table := NewTable(Signature{UTF8, raw}, Signature{UTF16LE, nil})
	raw[0] = 0x00

	sigs := table.Signatures()
	require.Len(t, sigs, 1)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, sigs[0].Bytes)

	sigs[0].Bytes[1] = 0x00
	assert.Len(t, table.Match([]byte{0xEF, 0xBB, 0xBF}), 1)
}

func TestTable_Subset(t *testing.T) {
	table := DefaultTable().Subset(UTF16BE, UTF16LE)

	assert.Equal(t, 2, table.ProbeSize())
	assert.Empty(t, table.Match([]byte{0xEF, 0xBB, 0xBF}))
	assert.Len(t, table.Match([]byte{0xFE, 0xFF}), 1)
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{
		"utf-8":    UTF8,
		"UTF8":     UTF8,
		"utf-16le": UTF16LE,
		"UTF-16BE": UTF16BE,
	} {
		got, err := ParseEncoding(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.NotEmpty(t, got.String())
	}

	_, err := ParseEncoding("latin1")
	assert.Error(t, err)
	assert.Equal(t, "Encoding(0)", Encoding(0).String())
}
