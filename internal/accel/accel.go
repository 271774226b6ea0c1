// Package accel implements the fast-forward prefilter: a Scanner that
// lets internal/runtime skip over input bytes that cannot possibly
// begin a match, instead of re-seeding and immediately failing on every
// one of them.
//
// Build inspects a compiled Machine and picks the cheapest scanner that
// is still exact for that pattern: a single-literal search through
// github.com/coregx/ahocorasick when every match must begin with the
// same fixed byte sequence, otherwise a byte-membership scan over the
// set of bytes any BEGIN-reachable term accepts. Neither tier is
// approximate — both report only positions a real match could start
// from, so runtime never has to double-check a skip.
package accel

import (
	"encoding/binary"
	"math/bits"

	"github.com/coregx/ahocorasick"

	"github.com/jitregex/jitregex/internal/runtime"
)

// Build picks a Scanner for m, or nil if no cheap prefilter applies
// (the pattern is begin-anchored, uses Wide code units, or its first
// bytes are too permissive to filter on).
func Build(m *runtime.Machine) runtime.Scanner {
	if lit, ok := m.InitialLiteral(); ok {
		s, err := newLiteralScanner(lit)
		if err == nil {
			return s
		}
	}
	if table, ok := m.InitialByteSet(); ok {
		return newByteSetScanner(table)
	}
	return nil
}

// literalScanner finds the next occurrence of a single fixed literal
// via an Aho-Corasick automaton built over that one pattern, rather than
// hand-rolling a single-pattern search.
type literalScanner struct {
	automaton *ahocorasick.Automaton
}

func newLiteralScanner(lit []byte) (*literalScanner, error) {
	b := ahocorasick.NewBuilder()
	b.AddPattern(lit)
	automaton, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &literalScanner{automaton: automaton}, nil
}

// Index reports the offset of the next possible match start in buf, or
// -1 if the literal does not occur at all.
func (s *literalScanner) Index(buf []byte) int {
	match := s.automaton.Find(buf, 0)
	if match == nil {
		return -1
	}
	return match.Start
}

// byteSetScanner finds the next byte in a 256-entry membership table.
// For sets of 1 to 3 bytes it uses the SWAR (SIMD-within-a-register)
// technique: broadcast every candidate byte across a uint64 lane, test 8
// bytes at a time against it, and combine hits with bitwise OR before
// falling back to a linear scan over the tail that does not fill a whole
// lane. Larger sets are scanned one byte at a time against the table.
type byteSetScanner struct {
	table [256]bool

	// small holds up to 3 candidate bytes when the set is that small,
	// letting Index skip the table test entirely and run the plain
	// needle-broadcast loop (every table hit is in the mask already
	// since it was derived from exactly these bytes).
	small  [3]byte
	nsmall int
}

func newByteSetScanner(table [256]bool) *byteSetScanner {
	s := &byteSetScanner{table: table}
	for ch := 0; ch < 256 && s.nsmall < 3; ch++ {
		if table[ch] {
			s.small[s.nsmall] = byte(ch)
			s.nsmall++
		}
	}
	if s.nsmall == 3 {
		for ch := 0; ch < 256; ch++ {
			if table[ch] && (byte(ch) != s.small[0] && byte(ch) != s.small[1] && byte(ch) != s.small[2]) {
				s.nsmall = 0 // more than 3 distinct bytes: fall back to the table scan
				break
			}
		}
	}
	return s
}

func (s *byteSetScanner) Index(buf []byte) int {
	switch s.nsmall {
	case 1:
		return memchrSWAR(buf, s.small[0])
	case 2:
		return memchr2SWAR(buf, s.small[0], s.small[1])
	case 3:
		return memchr3SWAR(buf, s.small[0], s.small[1], s.small[2])
	default:
		return memchrTable(buf, &s.table)
	}
}

const lo8 = 0x0101010101010101
const hi8 = 0x8080808080808080

func memchrSWAR(haystack []byte, needle byte) int {
	n := len(haystack)
	mask := uint64(needle) * lo8
	i := 0
	for i+8 <= n {
		chunk := binary.LittleEndian.Uint64(haystack[i:])
		xor := chunk ^ mask
		hasZero := (xor - lo8) &^ xor & hi8
		if hasZero != 0 {
			return i + bits.TrailingZeros64(hasZero)/8
		}
		i += 8
	}
	for ; i < n; i++ {
		if haystack[i] == needle {
			return i
		}
	}
	return -1
}

func memchr2SWAR(haystack []byte, n1, n2 byte) int {
	n := len(haystack)
	m1 := uint64(n1) * lo8
	m2 := uint64(n2) * lo8
	i := 0
	for i+8 <= n {
		chunk := binary.LittleEndian.Uint64(haystack[i:])
		x1 := chunk ^ m1
		x2 := chunk ^ m2
		has := (x1-lo8)&^x1&hi8 | (x2-lo8)&^x2&hi8
		if has != 0 {
			return i + bits.TrailingZeros64(has)/8
		}
		i += 8
	}
	for ; i < n; i++ {
		if haystack[i] == n1 || haystack[i] == n2 {
			return i
		}
	}
	return -1
}

func memchr3SWAR(haystack []byte, n1, n2, n3 byte) int {
	n := len(haystack)
	m1 := uint64(n1) * lo8
	m2 := uint64(n2) * lo8
	m3 := uint64(n3) * lo8
	i := 0
	for i+8 <= n {
		chunk := binary.LittleEndian.Uint64(haystack[i:])
		x1 := chunk ^ m1
		x2 := chunk ^ m2
		x3 := chunk ^ m3
		has := (x1-lo8)&^x1&hi8 | (x2-lo8)&^x2&hi8 | (x3-lo8)&^x3&hi8
		if has != 0 {
			return i + bits.TrailingZeros64(has)/8
		}
		i += 8
	}
	for ; i < n; i++ {
		b := haystack[i]
		if b == n1 || b == n2 || b == n3 {
			return i
		}
	}
	return -1
}

func memchrTable(haystack []byte, table *[256]bool) int {
	for i, b := range haystack {
		if table[b] {
			return i
		}
	}
	return -1
}
