// Package runtime implements the compiled Machine and its Match objects:
// it wires parser → transgen → state → trace → emit into a per-pattern
// term table, then drives the state-array
// stepping protocol those components describe — current/next swap,
// conditional transition, end-of-match check, purge — in plain Go,
// calling into the two compiled emit.Program routines on every input
// byte.
package runtime

import (
	"fmt"
	"io"

	"github.com/jitregex/jitregex/internal/emit"
	"github.com/jitregex/jitregex/internal/ir"
	"github.com/jitregex/jitregex/internal/parser"
	"github.com/jitregex/jitregex/internal/state"
	"github.com/jitregex/jitregex/internal/trace"
	"github.com/jitregex/jitregex/internal/transgen"
)

// Scanner finds the offset of the next byte in buf that could begin a
// match, or -1 if none remains. internal/accel implements this as a
// fast-forward prefilter; a Machine compiled without one just steps one
// byte at a time, which is always correct, only slower on long
// non-matching prefixes.
type Scanner interface {
	Index(buf []byte) int
}

// destInfo is one edge out of a term's reachable set: the destination
// term index and the id color trace.Walk assigned it (the highest
// ID-item value crossed strictly between the source and this
// destination; 0 if none).
type destInfo struct {
	term int32
	id   int32
}

type termKind int

const (
	termChar termKind = iota
	termRange
)

// termInfo is the compile-time-resolved description of one term: how to
// test the current input character against it, and what it transitions
// to on acceptance.
type termInfo struct {
	kind    termKind
	char    int32 // termChar
	rangeLo int   // termRange: position of the RNG_START item
	rangeHi int   // termRange: position of the matching RNG_END item
	invert  bool  // termRange: RNG_START's invert flag
	next    []destInfo
}

// Machine is the compiled, immutable form of one pattern: the
// transitions array (needed only to read character-class members), the
// per-term dispatch table, and the two routines InsertTransition and
// EndCheck assemble once for this pattern's stride and mode. It is safe
// to share across goroutines; every mutable field lives on Match.
type Machine struct {
	transitions []ir.Item
	terms       []termInfo
	initial     []destInfo
	termsSize   int32
	stride      int32
	flags       ir.Flags

	insertProg *emit.Program
	endProg    *emit.Program

	scanner Scanner
}

// Compile builds a Machine for pattern under flags. Anchors (^, $) and
// the ID_CHECK bit are derived from the pattern text itself by the
// parser and folded into the Machine's effective flags.
func Compile(pattern string, flags ir.Flags) (*Machine, error) {
	return CompileWithScanner(pattern, flags, nil)
}

// CompileWithScanner is Compile plus an optional fast-forward Scanner
// (nil disables the optimization; matching is still correct, just
// without the skip-ahead).
func CompileWithScanner(pattern string, flags ir.Flags, scanner Scanner) (*Machine, error) {
	return compile(pattern, flags, scanner, nil)
}

// CompileTraced is Compile plus a disassembly sink: under the Verbose
// flag, the InsertTransition and EndCheck routines compiled for this
// pattern are written to trace, one line per instruction, before
// Compile returns. trace is never touched again afterward; matching
// itself produces no further trace output.
func CompileTraced(pattern string, flags ir.Flags, trace io.Writer) (*Machine, error) {
	return compile(pattern, flags, nil, trace)
}

func compile(pattern string, flags ir.Flags, scanner Scanner, traceOut io.Writer) (*Machine, error) {
	pres, err := parser.Parse([]rune(pattern), flags)
	if err != nil {
		return nil, ir.Wrap("parser", err)
	}
	flags = pres.Flags

	transitions, err := transgen.Generate(pres.Stack, pres.DFASize)
	if err != nil {
		return nil, ir.Wrap("transgen", err)
	}

	layout := state.Annotate(transitions)

	stride := emit.NoIDStride
	if layout.IDCheck {
		stride = emit.IDCheckStride
	}

	terms := make([]termInfo, layout.TermsSize)
	termPos := make([]int, layout.TermsSize)
	rngStart := 0

	for i, t := range transitions {
		term := layout.States[i].Term
		switch t.Kind {
		case ir.Char:
			terms[term] = termInfo{kind: termChar, char: t.Value}
			termPos[term] = i
		case ir.RngStart:
			rngStart = i
		case ir.RngEnd:
			terms[term] = termInfo{
				kind:    termRange,
				rangeLo: rngStart,
				rangeHi: i,
				invert:  transitions[rngStart].Value != 0,
			}
			termPos[term] = i
		}
	}

	states := layout.States
	resetColors := func() {
		for i := range states {
			states[i].Value = -1
		}
	}

	resetColors()
	initialReached := trace.Walk(0, transitions, states)
	initial := make([]destInfo, 0, len(initialReached))
	for _, pos := range initialReached {
		initial = append(initial, destInfo{term: states[pos].Term, id: states[pos].Value})
	}

	for term := int32(1); term < layout.TermsSize; term++ {
		resetColors()
		reached := trace.Walk(termPos[term], transitions, states)
		next := make([]destInfo, 0, len(reached))
		for _, pos := range reached {
			next = append(next, destInfo{term: states[pos].Term, id: states[pos].Value})
		}
		terms[term].next = next
	}

	d := &emit.Driver{Stride: stride}
	insertProg, err := d.InsertTransition(layout.IDCheck)
	if err != nil {
		return nil, ir.Wrap("emit", err)
	}
	endProg, err := d.EndCheck(flags.Has(ir.NonGreedy), flags.Has(ir.MatchBegin))
	if err != nil {
		return nil, ir.Wrap("emit", err)
	}

	if traceOut != nil && flags.Has(ir.Verbose) {
		fmt.Fprintf(traceOut, "; jitregex: pattern %q, %d terms, stride %d\n", pattern, layout.TermsSize, stride)
		fmt.Fprint(traceOut, "insert_transition:\n", insertProg.Disassemble())
		fmt.Fprint(traceOut, "end_check:\n", endProg.Disassemble())
	}

	m := &Machine{
		transitions: transitions,
		terms:       terms,
		initial:     initial,
		termsSize:   layout.TermsSize,
		stride:      stride,
		flags:       flags,
		insertProg:  insertProg,
		endProg:     endProg,
		scanner:     scanner,
	}
	return m, nil
}

// Close releases the Machine. Nothing here needs explicit release (no
// native code pages, no OS handles); the method exists so callers can
// treat Machine symmetrically with Match, which does hold resources.
func (m *Machine) Close() error { return nil }

// classMatches reports whether ch is a member of the character class
// spanning transitions(lo, hi) — the RNG_CHAR/RNG_LEFT..RNG_RIGHT items
// strictly between the RNG_START at lo and the RNG_END at hi. It does
// not apply the class's invert flag; the caller does.
func classMatches(transitions []ir.Item, lo, hi int, ch int32) bool {
	for i := lo + 1; i < hi; i++ {
		switch transitions[i].Kind {
		case ir.RngChar:
			if transitions[i].Value == ch {
				return true
			}
		case ir.RngLeft:
			if ch >= transitions[i].Value && ch <= transitions[i+1].Value {
				return true
			}
			i++
		}
	}
	return false
}

func (m *Machine) termMatches(term int32, ch int32) bool {
	info := &m.terms[term]
	if info.kind == termChar {
		return info.char == ch
	}
	return classMatches(m.transitions, info.rangeLo, info.rangeHi, ch) != info.invert
}

// Match reports whether b contains any match of the compiled pattern.
func (m *Machine) Match(b []byte) (bool, error) {
	x, err := m.NewMatch()
	if err != nil {
		return false, err
	}
	defer x.Close()
	if err := x.Continue(b); err != nil {
		return false, err
	}
	begin, _, _ := x.Result()
	return begin != -1, nil
}

// Find reports the leftmost match of the compiled pattern in b: begin
// and end delimit b[begin:end], id is the `{n!}` annotation the winning
// alternative carried (0 if none), and ok is false if there is no match.
func (m *Machine) Find(b []byte) (begin, end, id int, ok bool) {
	x, err := m.NewMatch()
	if err != nil {
		return -1, 0, 0, false
	}
	defer x.Close()
	if err := x.Continue(b); err != nil {
		return -1, 0, 0, false
	}
	begin, end, id = x.Result()
	return begin, end, id, begin != -1
}

// SetScanner attaches a fast-forward Scanner after compilation, once the
// caller has had a chance to inspect InitialByteSet/InitialLiteral and
// decide whether prefiltering is worthwhile for this pattern.
func (m *Machine) SetScanner(s Scanner) { m.scanner = s }

// InitialByteSet reports, as a 256-entry membership table, every byte
// that could legally begin a fresh match attempt — the union of what
// every BEGIN-reachable term accepts. ok is false when the pattern is
// begin-anchored (there is nothing to fast-forward toward: the match
// must start exactly at the current position) or when the set is too
// permissive to be worth scanning for (better than about one byte in
// four rejected).
func (m *Machine) InitialByteSet() (table [256]bool, ok bool) {
	if m.flags.Has(ir.MatchBegin) || m.flags.Has(ir.Wide) {
		return table, false
	}
	count := 0
	for ch := 0; ch < 256; ch++ {
		for _, d := range m.initial {
			if d.term == 0 {
				continue
			}
			if m.termMatches(d.term, int32(ch)) {
				table[ch] = true
				count++
				break
			}
		}
	}
	if count == 0 || count > 192 {
		return table, false
	}
	return table, true
}

// InitialLiteral reports the fixed literal byte sequence, if any, that
// every match of this pattern must begin with: the chain of CHAR terms
// reached from BEGIN for as long as each step has exactly one possible
// next term, that term is a CHAR, and END is not reachable at that step
// (a match may stop there). ok is false when the pattern is begin-anchored, uses
// Wide code units, or the chain is shorter than two bytes (not worth a
// multi-byte search over a plain byte-set scan).
func (m *Machine) InitialLiteral() (lit []byte, ok bool) {
	if m.flags.Has(ir.MatchBegin) || m.flags.Has(ir.Wide) {
		return nil, false
	}
	seen := make(map[int32]bool)
	current := m.initial
	for {
		var next *destInfo
		for i := range current {
			if current[i].term == 0 {
				next = nil
				break
			}
			if next != nil {
				next = nil
				break
			}
			next = &current[i]
		}
		if next == nil || m.terms[next.term].kind != termChar {
			break
		}
		if seen[next.term] {
			// a revisited term would repeat the chain forever.
			break
		}
		seen[next.term] = true
		ch := m.terms[next.term].char
		if ch < 0 || ch > 255 {
			break
		}
		lit = append(lit, byte(ch))
		current = m.terms[next.term].next
	}
	if len(lit) < 2 {
		return nil, false
	}
	return lit, true
}
