// Package bom detects and removes byte-order marks at the start of files.
package bom

import (
	"bytes"
	"fmt"
	"strings"
)

// Encoding identifies the text encoding announced by a byte-order mark.
type Encoding int

const (
	UTF8 Encoding = iota + 1
	UTF16LE
	UTF16BE
)

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "UTF-8"
	case UTF16LE:
		return "UTF-16LE"
	case UTF16BE:
		return "UTF-16BE"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// MarshalText renders the encoding by name for yaml and json reports.
func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// ParseEncoding accepts names like "utf-8", "UTF8" or "utf-16le".
func ParseEncoding(name string) (Encoding, error) {
	n := strings.ToUpper(strings.ReplaceAll(name, "-", ""))
	switch n {
	case "UTF8":
		return UTF8, nil
	case "UTF16LE":
		return UTF16LE, nil
	case "UTF16BE":
		return UTF16BE, nil
	}
	return 0, fmt.Errorf("unknown encoding %q", name)
}

// Signature is the byte sequence that marks one encoding.
type Signature struct {
	Encoding Encoding
	Bytes    []byte
}

// Len is the number of bytes the signature occupies at the start of a file.
func (s Signature) Len() int { return len(s.Bytes) }

// Table is an immutable, ordered set of signatures.
type Table struct {
	sigs  []Signature
	probe int
	min   int
}

// DefaultTable holds the UTF-8, UTF-16LE and UTF-16BE marks.
func DefaultTable() Table {
	return NewTable(
		Signature{UTF8, []byte{0xEF, 0xBB, 0xBF}},
		Signature{UTF16LE, []byte{0xFF, 0xFE}},
		Signature{UTF16BE, []byte{0xFE, 0xFF}},
	)
}

// NewTable copies sigs into a table. Empty signatures are dropped.
func NewTable(sigs ...Signature) Table {
	t := Table{sigs: make([]Signature, 0, len(sigs))}
	for _, s := range sigs {
		if len(s.Bytes) == 0 {
			continue
		}
		t.sigs = append(t.sigs, Signature{s.Encoding, bytes.Clone(s.Bytes)})
		if len(s.Bytes) > t.probe {
			t.probe = len(s.Bytes)
		}
		if t.min == 0 || len(s.Bytes) < t.min {
			t.min = len(s.Bytes)
		}
	}
	return t
}

// Subset keeps only the signatures of the given encodings, in table order.
func (t Table) Subset(encs ...Encoding) Table {
	keep := make(map[Encoding]bool, len(encs))
	for _, e := range encs {
		keep[e] = true
	}
	var sigs []Signature
	for _, s := range t.sigs {
		if keep[s.Encoding] {
			sigs = append(sigs, s)
		}
	}
	return NewTable(sigs...)
}

// Signatures returns a copy of the table entries.
func (t Table) Signatures() []Signature {
	out := make([]Signature, len(t.sigs))
	for i, s := range t.sigs {
		out[i] = Signature{s.Encoding, bytes.Clone(s.Bytes)}
	}
	return out
}

// ProbeSize is the number of leading bytes needed to test every signature.
func (t Table) ProbeSize() int { return t.probe }

// MinSize is the length of the shortest signature.
func (t Table) MinSize() int { return t.min }

// Match returns every signature that is a prefix of probe. Entries are
// checked independently, so overlapping signatures all match.
func (t Table) Match(probe []byte) []Signature {
	var out []Signature
	for _, s := range t.sigs {
		if bytes.HasPrefix(probe, s.Bytes) {
			out = append(out, s)
		}
	}
	return out
}
