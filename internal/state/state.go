// Package state annotates a transitions array with the search-state
// metadata the runtime stepping loop needs: which
// term index (if any) each transition slot resolves to, whether the
// pattern needs per-thread id tracking, and how large a character
// class's temporary jump list must be sized.
package state

import "github.com/jitregex/jitregex/internal/ir"

// Item is one slot of the search-state array, one per transitions slot.
// Term is the 1-based index into the terms array this slot advances on a
// match (0 reserved for BEGIN/END, -1 for slots that never resolve to a
// term on their own — brackets, BRANCH/JUMP, ID, and the interior
// members of a character class). Value is scratch space the trace stage
// colors with a thread id; it starts at -1 (uncolored).
type Item struct {
	Term  int32
	Value int32
}

// Result is the annotator's output.
type Result struct {
	States []Item
	// TermsSize is one past the highest term index assigned: the size
	// the runtime's per-term state arrays must be allocated to.
	TermsSize int32
	// LongestRangeSize is the largest distance, in transition slots, from
	// a character class's RNG_START to its RNG_END (3 for [a-z]): one more
	// than its member slots, sized for the emitter's temporary jump-list
	// buffer.
	LongestRangeSize int32
	// IDCheck reports whether any `{n!}` annotation with n > 0 appeared,
	// requiring the runtime to track and compare thread ids.
	IDCheck bool
}

// Annotate walks transitions once and builds the matching search-state
// array alongside term/id/range bookkeeping.
func Annotate(transitions []ir.Item) Result {
	states := make([]Item, len(transitions))
	termsSize := int32(1)
	longest := int32(0)
	idCheck := false
	rngStart := 0

	for i, t := range transitions {
		switch t.Kind {
		case ir.Begin, ir.End:
			states[i].Term = 0

		case ir.Char:
			states[i].Term = termsSize
			termsSize++

		case ir.ID:
			if t.Value > 0 {
				idCheck = true
			}
			states[i].Term = -1

		case ir.RngStart:
			states[i].Term = termsSize
			rngStart = i

		case ir.RngEnd:
			states[i].Term = termsSize
			termsSize++
			if span := int32(i - rngStart); span > longest {
				longest = span
			}

		default:
			// RngChar, RngLeft, RngRight, Branch, Jump, OpenBr, CloseBr,
			// Select, Asterisk, Plus, Question: structural only.
			states[i].Term = -1
		}
		states[i].Value = -1
	}

	return Result{
		States:           states,
		TermsSize:        termsSize,
		LongestRangeSize: longest,
		IDCheck:          idCheck,
	}
}
