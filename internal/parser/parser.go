// Package parser turns a pattern string into the tagged item sequence
// consumed by internal/transgen. It is a direct,
// single-pass recursive-descent-free scanner: no AST is built, items are
// pushed straight onto an itemstack.Stack in source order, and bounded
// repetition is unrolled into repeated copies right here rather than
// deferred to a later pass.
package parser

import (
	"fmt"

	"github.com/jitregex/jitregex/internal/ir"
	"github.com/jitregex/jitregex/internal/itemstack"
)

// Result is the parser's output: the item stack ready for internal/transgen,
// the number of transition slots that stack will expand into, and the
// flags as amended by any `^`/`$` anchors or `{n!}` id annotations found
// in the pattern.
type Result struct {
	Stack   *itemstack.Stack
	DFASize int32
	Flags   ir.Flags
}

type parser struct {
	src     []rune
	pos     int
	stack   *itemstack.Stack
	dfaSize int32
	flags   ir.Flags
}

// Parse compiles pattern into an item stack. flags carries caller-supplied
// options (Newline, NonGreedy, Wide, Verbose); MatchBegin/MatchEnd and the
// internal id-check bit are derived from the pattern itself and ORed in.
func Parse(pattern []rune, flags ir.Flags) (*Result, error) {
	p := &parser{src: pattern, stack: itemstack.New(), flags: flags}

	// type_begin and type_end reserve two transition slots up front.
	p.dfaSize = 2
	if err := p.stack.Push(ir.Begin, 0); err != nil {
		return nil, err
	}

	if len(p.src) > 0 && p.src[0] == '^' {
		p.flags |= ir.MatchBegin
		p.pos++
	}

	depth := 0
	begin := true // true until the first term has been pushed

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '\\':
			p.pos++
			if p.pos == len(p.src) {
				return nil, fmt.Errorf("%w: dangling escape", ir.ErrInvalidRegex)
			}
			if err := p.stack.Push(ir.Char, int32(p.src[p.pos])); err != nil {
				return nil, err
			}
			begin = false
			p.dfaSize++

		case '.':
			if err := p.stack.Push(ir.RngStart, 1); err != nil {
				return nil, err
			}
			if p.flags.Has(ir.Newline) {
				if err := p.stack.Push(ir.RngChar, '\n'); err != nil {
					return nil, err
				}
				if err := p.stack.Push(ir.RngChar, '\r'); err != nil {
					return nil, err
				}
				p.dfaSize += 2
			}
			if err := p.stack.Push(ir.RngEnd, 1); err != nil {
				return nil, err
			}
			begin = false
			p.dfaSize += 2

		case '(':
			depth++
			if err := p.stack.Push(ir.OpenBr, 0); err != nil {
				return nil, err
			}
			begin = true

		case ')':
			if depth == 0 {
				return nil, fmt.Errorf("%w: unmatched )", ir.ErrInvalidRegex)
			}
			depth--
			if err := p.stack.Push(ir.CloseBr, 0); err != nil {
				return nil, err
			}
			begin = false

		case '|':
			if err := p.stack.Push(ir.Select, 0); err != nil {
				return nil, err
			}
			begin = true
			p.dfaSize += 2

		case '*':
			if begin {
				return nil, fmt.Errorf("%w: %q with no preceding term", ir.ErrInvalidRegex, c)
			}
			if err := p.stack.Push(ir.Asterisk, 0); err != nil {
				return nil, err
			}
			p.dfaSize += 2

		case '?', '+':
			if begin {
				return nil, fmt.Errorf("%w: %q with no preceding term", ir.ErrInvalidRegex, c)
			}
			kind := ir.Question
			if c == '+' {
				kind = ir.Plus
			}
			if err := p.stack.Push(kind, 0); err != nil {
				return nil, err
			}
			p.dfaSize++

		case '{':
			ok, err := p.parseIterator(begin)
			if err != nil {
				return nil, err
			}
			if !ok {
				// Not a valid bounded-repetition expression: the '{' is a
				// literal character, and parsing resumes from the very
				// next one (whatever partial digits were inspected are
				// simply re-scanned as literals).
				if err := p.stack.Push(ir.Char, '{'); err != nil {
					return nil, err
				}
				p.dfaSize++
			}
			begin = false

		case '[':
			if err := p.parseCharRange(); err != nil {
				return nil, err
			}
			begin = false

		default:
			if c == '$' && p.pos == len(p.src)-1 {
				p.flags |= ir.MatchEnd
				p.pos++
				continue
			}
			if err := p.stack.Push(ir.Char, int32(c)); err != nil {
				return nil, err
			}
			begin = false
			p.dfaSize++
		}
		p.pos++
	}

	if depth != 0 {
		return nil, fmt.Errorf("%w: unclosed (", ir.ErrInvalidRegex)
	}
	if err := p.stack.Push(ir.End, 0); err != nil {
		return nil, err
	}

	return &Result{Stack: p.stack, DFASize: p.dfaSize, Flags: p.flags}, nil
}

// decodeNumber parses a run of ASCII digits starting at pos. ok is false
// if the character at pos is not a digit (zero digits is not a number,
// mirroring decode_number's "no digits consumed" convention).
func decodeNumber(src []rune, pos int) (value int32, newPos int, ok bool) {
	if pos >= len(src) || src[pos] < '0' || src[pos] > '9' {
		return 0, pos, false
	}
	v := int32(0)
	for pos < len(src) && src[pos] >= '0' && src[pos] <= '9' {
		v = v*10 + int32(src[pos]-'0')
		pos++
	}
	return v, pos, true
}

// parseIterator parses a `{...}` bounded-repetition expression starting
// at p.pos (which holds '{'). On success it rewrites the stack in place
// and leaves p.pos at the closing '}'. ok is false when the text is not a
// well-formed bounded-repetition expression, in which case p.pos is left
// unchanged and the caller treats '{' as a literal.
func (p *parser) parseIterator(begin bool) (ok bool, err error) {
	pos := p.pos + 1

	if pos >= len(p.src) {
		return false, nil
	}

	var min, max int32 = 0, -1 // max == -1 marks "not yet decided"

	if p.src[pos] == ',' {
		min = 0
		pos++
	} else {
		v, next, digitsOK := decodeNumber(p.src, pos)
		if !digitsOK {
			return false, nil
		}
		min = v
		pos = next

		if pos >= len(p.src) {
			return false, nil
		}
		switch {
		case p.src[pos] == '}':
			pos++ // consume '}'
			if min == 0 {
				// {0}: exactly zero occurrences, same as {0,0}.
				if err := p.deleteSubtree(); err != nil {
					return false, err
				}
			} else if err := p.applyIterator(min, min); err != nil {
				return false, err
			}
			p.pos = pos - 1
			return true, nil

		case pos+1 < len(p.src) && p.src[pos] == '!' && p.src[pos+1] == '}':
			// Non-POSIX extension: {n!} tags the preceding term with an
			// id checked at match time instead of repeating it.
			if err := p.stack.Push(ir.ID, min); err != nil {
				return false, err
			}
			p.dfaSize++
			if min > 0 {
				p.flags = p.flags.WithIDCheck()
			}
			p.pos = pos + 1 // at the closing '}'
			return true, nil

		case p.src[pos] != ',':
			return false, nil

		default:
			pos++ // consume ','
		}
	}

	if begin {
		// A range cannot be the very first term: {n,m} with nothing
		// before it to repeat is not a valid regex.
		return false, nil
	}

	deleteCase := false
	if max == -1 {
		if pos >= len(p.src) {
			return false, nil
		}
		if p.src[pos] == '}' {
			max = 0 // unbounded, in the {n,0}/parse_iterator sense
		} else {
			v, next, digitsOK := decodeNumber(p.src, pos)
			if !digitsOK {
				return false, nil
			}
			pos = next
			if pos >= len(p.src) || p.src[pos] != '}' || v < min {
				return false, nil
			}
			max = v
			if max == 0 {
				// {,0} or {0,0}: min is necessarily 0 here (the v < min
				// guard above rejects max 0 with min > 0).
				deleteCase = true
			}
		}
	}
	pos++ // consume '}'

	if deleteCase {
		if err := p.deleteSubtree(); err != nil {
			return false, err
		}
	} else if err := p.applyIterator(min, max); err != nil {
		return false, err
	}
	p.pos = pos - 1
	return true, nil
}

// applyIterator pushes the item(s) `{min,max}` expands to, with max == 0
// meaning unbounded (the {n,0} convention used throughout this stage).
// The {0,0}/{0}/{,0} delete case is handled separately by deleteSubtree.
func (p *parser) applyIterator(min, max int32) error {
	switch {
	case min > 1 || max > 1:
		delta, err := p.unroll(min, max)
		if err != nil {
			return err
		}
		p.dfaSize += delta

	case min == 0 && max == 0:
		// Bare {,} or {0,}: zero to unbounded, same as *.
		if err := p.stack.Push(ir.Asterisk, 0); err != nil {
			return err
		}
		p.dfaSize += 2

	case min == 1 && max == 0:
		if err := p.stack.Push(ir.Plus, 0); err != nil {
			return err
		}
		p.dfaSize++

	case min == 0 && max == 1:
		if err := p.stack.Push(ir.Question, 0); err != nil {
			return err
		}
		p.dfaSize++

	default:
		// min == 1 && max == 1: no-op, the single term already on the
		// stack is exactly what was asked for.
	}
	return nil
}

// deleteSubtree implements the {0,0} family ({0}, {0,0}, {,0}): the
// immediately preceding subexpression is removed entirely and replaced
// with an empty group, since it can never contribute a match.
func (p *parser) deleteSubtree() error {
	delta, err := p.unroll(0, 0)
	if err != nil {
		return err
	}
	p.dfaSize += delta
	return nil
}

// unroll locates the subexpression immediately preceding the cursor by
// scanning backward over balanced brackets, then rewrites it in place as
// min..max copies. It is called only for {0,0} (delete, via deleteSubtree
// passing min==max==0 — see parseIterator's "{0}" exact-form handling) or
// for a genuine multi-copy case (min>1 or max>1). It returns the delta to
// add to the running dfa size.
func (p *parser) unroll(min, max int32) (int32, error) {
	window, unit, err := p.scanBackward()
	if err != nil {
		return 0, err
	}

	if min == 0 && max == 0 {
		if err := p.stack.Push(ir.OpenBr, 0); err != nil {
			return 0, err
		}
		if err := p.stack.Push(ir.CloseBr, 0); err != nil {
			return 0, err
		}
		return -unit, nil
	}

	pushWindow := func() error {
		for _, it := range window {
			if err := p.stack.Push(it.Kind, it.Value); err != nil {
				return err
			}
		}
		return nil
	}

	// pushWindowN pushes n back-to-back copies of window. The first copy
	// always comes from the Go slice; any further copies are byte-for-
	// byte identical to the one just written, so they are duplicated in
	// place with PushCopy instead of walking the slice again.
	pushWindowN := func(n int32) error {
		if n <= 0 {
			return nil
		}
		if err := pushWindow(); err != nil {
			return err
		}
		for i := int32(1); i < n; i++ {
			if err := p.stack.PushCopy(len(window), len(window)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := p.stack.Push(ir.OpenBr, 0); err != nil {
		return 0, err
	}

	var delta int32
	if max > 0 {
		delta = unit*(max-1) + (max - min)
		if err := pushWindowN(min); err != nil {
			return 0, err
		}
		for i := int32(0); i < max-min; i++ {
			if err := pushWindow(); err != nil {
				return 0, err
			}
			if err := p.stack.Push(ir.Question, 0); err != nil {
				return 0, err
			}
		}
	} else {
		// Unbounded: min > 1 is guaranteed (min <= 1 unbounded cases are
		// handled directly in applyIterator without calling unroll).
		delta = unit*(min-1) + 1
		if err := pushWindowN(min); err != nil {
			return 0, err
		}
		if err := p.stack.Push(ir.Plus, 0); err != nil {
			return 0, err
		}
	}

	if err := p.stack.Push(ir.CloseBr, 0); err != nil {
		return 0, err
	}
	return delta, nil
}

// scanBackward walks a read-only snapshot of the stack to find the
// subexpression immediately below the current top, pops it off the real
// stack (preserving order), and returns it along with the transition
// count ("unit") it contributes to the dfa.
func (p *parser) scanBackward() (window []ir.Item, unit int32, err error) {
	scan := p.stack.Clone()
	depth := 0
	length := 0

	for {
		item := scan.Pop()
		length++
		switch item.Kind {
		case ir.ID, ir.RngEnd, ir.RngChar, ir.RngLeft, ir.RngRight, ir.Plus, ir.Question:
			unit++
		case ir.Asterisk, ir.Select:
			unit += 2
		case ir.CloseBr:
			depth++
		case ir.OpenBr:
			if depth == 0 {
				return nil, 0, fmt.Errorf("%w: unbalanced group in repetition operand", ir.ErrInvalidRegex)
			}
			depth--
			if depth == 0 {
				goto found
			}
		default: // Char or RngStart
			unit++
			if depth == 0 {
				goto found
			}
		}
	}

found:
	window = make([]ir.Item, length)
	for i := length - 1; i >= 0; i-- {
		window[i] = p.stack.Pop()
	}
	return window, unit, nil
}

// parseCharRange parses a `[...]`/`[^...]` character class starting at
// p.pos (which holds '['), pushing RngStart/RngChar/RngLeft/RngRight/
// RngEnd items, and leaves p.pos at the closing ']'.
func (p *parser) parseCharRange() error {
	pos := p.pos + 1
	if pos >= len(p.src) {
		return fmt.Errorf("%w: unterminated [", ir.ErrInvalidRegex)
	}

	appendNewlines := false
	if p.src[pos] != '^' {
		if err := p.stack.Push(ir.RngStart, 0); err != nil {
			return err
		}
	} else {
		pos++
		if pos >= len(p.src) {
			return fmt.Errorf("%w: unterminated [^", ir.ErrInvalidRegex)
		}
		if err := p.stack.Push(ir.RngStart, 1); err != nil {
			return err
		}
		if p.flags.Has(ir.Newline) {
			appendNewlines = true
		}
	}
	p.dfaSize += 2

	readChar := func() (rune, error) {
		if p.src[pos] != '\\' {
			c := p.src[pos]
			pos++
			return c, nil
		}
		pos++
		if pos >= len(p.src) {
			return 0, fmt.Errorf("%w: dangling escape in [...]", ir.ErrInvalidRegex)
		}
		c := p.src[pos]
		pos++
		return c, nil
	}

	// A leading ']' is a literal member, not the closing bracket.
	if p.src[pos] == ']' {
		pos++
		if err := p.stack.Push(ir.RngChar, ']'); err != nil {
			return err
		}
		p.dfaSize++
	}

	for {
		if pos >= len(p.src) {
			return fmt.Errorf("%w: unterminated [...]", ir.ErrInvalidRegex)
		}
		if p.src[pos] == ']' {
			break
		}

		left, err := readChar()
		if err != nil {
			return err
		}

		if pos+1 < len(p.src) && p.src[pos] == '-' && p.src[pos+1] != ']' {
			pos++ // consume '-'
			right, err := readChar()
			if err != nil {
				return err
			}
			if left > right {
				left, right = right, left
			}
			if err := p.stack.Push(ir.RngLeft, int32(left)); err != nil {
				return err
			}
			if err := p.stack.Push(ir.RngRight, int32(right)); err != nil {
				return err
			}
			p.dfaSize += 2
		} else {
			if err := p.stack.Push(ir.RngChar, int32(left)); err != nil {
				return err
			}
			p.dfaSize++
		}
	}

	if appendNewlines {
		if err := p.stack.Push(ir.RngChar, '\n'); err != nil {
			return err
		}
		if err := p.stack.Push(ir.RngChar, '\r'); err != nil {
			return err
		}
		p.dfaSize += 2
	}

	if err := p.stack.Push(ir.RngEnd, 0); err != nil {
		return err
	}
	p.pos = pos // at the closing ']'
	return nil
}
