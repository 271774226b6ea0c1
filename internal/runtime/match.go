package runtime

import (
	"fmt"
	"io"

	"github.com/jitregex/jitregex/internal/emit"
	"github.com/jitregex/jitregex/internal/ir"
)

// Match is one in-flight matching attempt against a Machine: two
// term-stride state arrays (active/pending, swapped each step in place
// of copying), the running best match, and the index at which the next
// input character lands. A Match is single-owner; it is never shared
// across goroutines.
type Match struct {
	m *Machine

	active, pending         []int32
	headActive, headPending int32
	index                   int32

	state *emit.MatchState
	ctx   emit.Context
}

// NewMatch allocates a Match against m, already reset and ready for
// Continue.
func (m *Machine) NewMatch() (*Match, error) {
	size := int(m.termsSize) * int(m.stride)
	x := &Match{
		m:       m,
		active:  negOneFilled(size),
		pending: negOneFilled(size),
		state:   &emit.MatchState{},
	}
	x.ctx.Match = x.state
	x.Reset()
	return x, nil
}

func negOneFilled(n int) []int32 {
	s := make([]int32, n)
	for i := range s {
		s[i] = -1
	}
	return s
}

func clearAll(s []int32) {
	for i := range s {
		s[i] = -1
	}
}

// Reset returns x to its just-compiled state: every term inactive, no
// best match recorded, then seeds the initial active set traced from
// the pattern's start.
func (x *Match) Reset() {
	clearAll(x.active)
	clearAll(x.pending)
	x.headActive = -1
	x.headPending = -1
	x.index = 0

	x.state.BestStart = -1
	x.state.BestEnd = 0
	x.state.BestID = 0
	x.state.FastQuit = false
	x.state.FastForward = false

	x.seed(0)
}

// seed merges the Machine's BEGIN-reachable set into x.active with the
// given start index — the initializer the dispatch loop re-invokes at
// every step when the pattern is not anchored, so a fresh match attempt
// can begin at any position.
func (x *Match) seed(start int32) {
	x.ctx.Next = x.active
	x.ctx.Regs[emit.RNextHead] = int64(x.headActive)
	for _, d := range x.m.initial {
		x.ctx.Regs[emit.RScratch1] = int64(d.term)
		x.ctx.Regs[emit.RScratch2] = int64(start)
		x.ctx.Regs[emit.RRepeatID] = int64(d.id)
		x.m.insertProg.Run(&x.ctx)
	}
	x.headActive = int32(x.ctx.Regs[emit.RNextHead])
}

// propagate tests the active term's slot against ch and, on a match,
// threads every reachable destination term into x.pending.
func (x *Match) propagate(term int32, ch int32) {
	if !x.m.termMatches(term, ch) {
		return
	}
	base := term * x.m.stride
	start := x.active[base+emit.SlotStart]
	var srcID int32
	if x.m.stride == emit.IDCheckStride {
		srcID = x.active[base+emit.SlotID]
	}

	x.ctx.Next = x.pending
	x.ctx.Regs[emit.RNextHead] = int64(x.headPending)
	for _, d := range x.m.terms[term].next {
		id := srcID
		if d.id > id {
			id = d.id
		}
		x.ctx.Regs[emit.RScratch1] = int64(d.term)
		x.ctx.Regs[emit.RScratch2] = int64(start)
		x.ctx.Regs[emit.RRepeatID] = int64(id)
		x.m.insertProg.Run(&x.ctx)
	}
	x.headPending = int32(x.ctx.Regs[emit.RNextHead])
}

// runEndCheck invokes EndCheck against term 0's current slot and, if a
// best match is now recorded, purges every active thread the new best
// start has made unwinnable.
func (x *Match) runEndCheck() {
	var candID int32
	if x.m.stride == emit.IDCheckStride {
		candID = x.active[emit.SlotID]
	}
	x.ctx.Regs[emit.RScratch1] = int64(x.active[emit.SlotStart])
	x.ctx.Regs[emit.RScratch2] = int64(x.index)
	x.ctx.Regs[emit.RRepeatID] = int64(candID)
	x.m.endProg.Run(&x.ctx)

	if x.state.BestStart != -1 {
		x.purge(x.state.BestStart)
	}
}

// purge drops every active thread whose start can no longer produce a
// better match than best: strictly greater in greedy mode, not-strictly
// earlier in non-greedy mode (matching EndCheck's own overwrite rule).
func (x *Match) purge(best int32) {
	nonGreedy := x.m.flags.Has(ir.NonGreedy)
	var prev int32 = -1
	term := x.headActive
	for term != -1 {
		base := term * x.m.stride
		next := x.active[base+emit.SlotLink]
		start := x.active[base+emit.SlotStart]
		drop := start > best
		if nonGreedy {
			drop = start >= best
		}
		if drop {
			if prev == -1 {
				x.headActive = next
			} else {
				x.active[prev*x.m.stride+emit.SlotLink] = next
			}
			x.active[base+emit.SlotStart] = -1
		} else {
			prev = term
		}
		term = next
	}
}

// Continue feeds chunk to the stepping loop: for every character, swap
// in the previous step's pending set, re-seed a fresh start attempt
// (unless the pattern is begin-anchored), check for a completed match,
// then dispatch the current active list against the character and
// thread survivors into pending.
func (x *Match) Continue(chunk []byte) error {
	wide := x.m.flags.Has(ir.Wide)
	if wide && len(chunk)%2 != 0 {
		return fmt.Errorf("jitregex: odd-length chunk under the Wide flag")
	}
	matchBegin := x.m.flags.Has(ir.MatchBegin)

	canSkip := !wide && !matchBegin && x.m.scanner != nil

	i := 0
	for i < len(chunk) {
		if x.state.FastQuit {
			return nil
		}

		if canSkip && x.headActive == -1 {
			skip := x.m.scanner.Index(chunk[i:])
			if skip < 0 {
				x.index += int32(len(chunk) - i)
				break
			}
			if skip > 0 {
				x.index += int32(skip)
				i += skip
				continue
			}
		}

		var ch int32
		if wide {
			ch = int32(chunk[i]) | int32(chunk[i+1])<<8
			i += 2
		} else {
			ch = int32(chunk[i])
			i++
		}

		if !matchBegin {
			x.seed(x.index)
		}

		if x.active[emit.SlotStart] != -1 {
			x.runEndCheck()
			if x.state.FastQuit {
				return nil
			}
		}

		if x.headActive == -1 {
			if matchBegin {
				x.state.FastQuit = true
				return nil
			}
		} else {
			term := x.headActive
			for term != -1 {
				base := term * x.m.stride
				next := x.active[base+emit.SlotLink]
				x.propagate(term, ch)
				x.active[base+emit.SlotLink] = -1
				term = next
			}
		}

		x.index++
		x.active, x.pending = x.pending, x.active
		x.headActive, x.headPending = x.headPending, -1
		clearAll(x.pending)
	}

	// A match completing on the very last character of this chunk has
	// no following character to trigger its end-of-match check through
	// the loop above (that check always runs one character late, using
	// the state the previous character's dispatch produced). Running
	// it once more here against whatever is active right now covers
	// that case; it is a no-op if nothing changed since the last real
	// check, so this is safe to run at every chunk boundary regardless
	// of whether more input is still coming.
	if x.active[emit.SlotStart] != -1 {
		x.runEndCheck()
	}
	return nil
}

// Result reports the best match recorded so far: begin == -1 means no
// match. Under the MatchEnd flag ($), the usual best-match bookkeeping
// is bypassed: the only acceptable match is one whose thread is still
// active in the current array, meaning it reaches exactly as far as the
// input consumed so far.
func (x *Match) Result() (begin, end, id int) {
	if x.m.flags.Has(ir.MatchEnd) {
		if x.active[emit.SlotStart] == -1 {
			return -1, 0, 0
		}
		begin = int(x.active[emit.SlotStart])
		end = int(x.index)
		if x.m.stride == emit.IDCheckStride {
			id = int(x.active[emit.SlotID])
		}
		return begin, end, id
	}

	if x.state.BestStart == -1 {
		return -1, 0, 0
	}
	return int(x.state.BestStart), int(x.state.BestEnd), int(x.state.BestID)
}

// IsFinished reports whether scanning can stop: a begin-anchored,
// non-greedy match already found (EndCheck's FastQuit signal), or a
// begin-anchored pattern whose last active thread has died.
func (x *Match) IsFinished() bool { return x.state.FastQuit }

// Close releases x. Nothing in this realization needs explicit release.
func (x *Match) Close() {}

// ScanReader drains r in chunkSize-byte pieces through Continue until
// IsFinished reports true, r is exhausted, or r or Continue returns an
// error; a best match recorded along the way does not stop it — sugar
// over Continue/Result/IsFinished for the common "match the whole
// stream" case, never bypassing the chunk-boundary contract those three
// already implement.
func (x *Match) ScanReader(r io.Reader, chunkSize int) (begin, end, id int, err error) {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	buf := make([]byte, chunkSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if cerr := x.Continue(buf[:n]); cerr != nil {
				return -1, 0, 0, cerr
			}
		}
		if x.IsFinished() {
			break
		}
		if rerr != nil {
			if rerr != io.EOF {
				return -1, 0, 0, rerr
			}
			break
		}
	}
	b, e, i := x.Result()
	return b, e, i, nil
}
