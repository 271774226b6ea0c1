package emit

// Driver builds the two routines the stepping loop needs once per
// compiled pattern and then calls on every input byte: InsertTransition
// threads a candidate thread into a term's slot of the next-state array;
// EndCheck decides whether a thread reaching END displaces the match
// recorded so far this step. Both are assembled once through the
// Assembler IR and then Run repeatedly by internal/runtime, so each
// term's handler is compiled once and executed on every step. Per-term
// dispatch (which terms are reachable, which match the current input
// byte) stays plain Go in internal/runtime, along with the active-list
// purge EndCheck triggers on an overwrite — a generic linked-list walk,
// not templated per-term logic, so it gains nothing from the bytecode
// interpreter.
//
// Calling convention, since each routine owns its own register usage:
//
// InsertTransition(idCheck bool):
//
//	RScratch1 = term index (the routine scales it by Stride)
//	RScratch2 = candidate start index
//	RRepeatID = candidate id (ignored unless idCheck)
//	RNextHead = active-list head, read and written across the whole step
//	RTemp     = scratch
//
// EndCheck(nonGreedy, matchBegin bool):
//
//	RScratch1 = candidate start index (slot[2] of the active END term)
//	RScratch2 = candidate end index (the current character index)
//	RRepeatID = candidate id (slot[3] of the active END term, ignored
//	            unless the pattern is ID_CHECK-tagged)
type Driver struct {
	// Stride is the word count of one term's slot: link + start, plus
	// id when the pattern carries an ID_CHECK tag.
	Stride int32
}

// A term's next-state slot layout: the active-list link, the thread's
// start index (also doubling as the "claimed this step" sentinel at
// -1), and, only when the pattern needs it, the thread's id. Exported
// so internal/runtime can read and unlink slots directly — the per-term
// dispatch and active-list purge it implements in plain Go share this
// same layout rather than going through a routine for every access.
const (
	SlotLink  int32 = 0
	SlotStart int32 = 1
	SlotID    int32 = 2
)

// NoIDStride and IDCheckStride are the two slot widths a Driver can be
// configured with.
const (
	NoIDStride    int32 = 2
	IDCheckStride int32 = 3
)

// InsertTransition builds the routine implementing the "conditional
// transition" rule: an untouched slot is claimed outright; a slot
// already claimed this step keeps whichever candidate has the earlier
// start (the later one is fully discarded, id included), and on a tied
// start an ID_CHECK-tagged pattern still raises the slot's id to the
// higher of the two. A strictly later candidate changes nothing.
func (d *Driver) InsertTransition(idCheck bool) (*Program, error) {
	b := NewBuilder()
	term := R(RScratch1)
	stride := d.Stride
	start := TermWord(BaseNextState, term, stride, SlotStart)
	oldID := TermWord(BaseNextState, term, stride, SlotID)

	b.Op2(Sub, Discard, start, Imm(-1), true)
	claimed := b.Jump(NotEqual)

	// Unclaimed: link and record unconditionally.
	b.Op1(start, R(RScratch2))
	b.Op1(TermWord(BaseNextState, term, stride, SlotLink), R(RNextHead))
	b.Op1(R(RNextHead), term)
	if idCheck {
		b.Op1(oldID, R(RRepeatID))
	}
	finish := b.Jump(Always)

	claimedLabel := b.Label()
	b.SetTarget(claimed, claimedLabel)

	b.Op2(Sub, Discard, start, R(RScratch2), true)
	replace := b.Jump(Greater)   // old start > new start: new strictly earlier
	discard := b.Jump(Less)      // old start < new start: new strictly later

	// Tie: merge ids only.
	if idCheck {
		b.Op1(R(RTemp), oldID)
		b.Op2(Sub, Discard, R(RRepeatID), R(RTemp), true)
		keep := b.Jump(NotAbove)
		b.Op1(oldID, R(RRepeatID))
		keepLabel := b.Label()
		b.SetTarget(keep, keepLabel)
	}
	tieDone := b.Jump(Always)

	replaceLabel := b.Label()
	b.SetTarget(replace, replaceLabel)
	b.Op1(start, R(RScratch2))
	if idCheck {
		b.Op1(oldID, R(RRepeatID))
	}

	discardLabel := b.Label()
	b.SetTarget(discard, discardLabel)

	finishLabel := b.Label()
	b.SetTarget(finish, finishLabel)
	b.SetTarget(tieDone, finishLabel)
	return b.Generate()
}

// EndCheck builds the routine run once per step when term 0 (END) is
// active: it decides whether the candidate (start, end, id) overwrites
// the best match recorded so far. Greedy mode overwrites on a
// not-later start (later end always wins by virtue of being this
// step); non-greedy mode requires a strictly earlier start and, when
// the pattern is anchored at the beginning, also signals FastQuit so
// the caller stops scanning after the first hit. The active-list purge
// that must follow an overwrite is left to internal/runtime, since it
// walks a variable-length list rather than touching fixed fields.
func (d *Driver) EndCheck(nonGreedy, matchBegin bool) (*Program, error) {
	b := NewBuilder()
	start := R(RScratch1)
	end := R(RScratch2)

	b.Op2(Sub, Discard, MatchField(FieldBestStart), Imm(-1), true)
	noResult := b.Jump(Equal)

	b.Op2(Sub, Discard, start, MatchField(FieldBestStart), true)
	var skip Jump
	if nonGreedy {
		skip = b.Jump(GreaterEqual) // not strictly earlier: no overwrite
	} else {
		skip = b.Jump(Greater) // strictly later: no overwrite
	}

	overwriteLabel := b.Label()
	b.SetTarget(noResult, overwriteLabel)
	if nonGreedy && matchBegin {
		b.Op1(MatchField(FieldFastQuit), Imm(1))
	}
	b.Op1(MatchField(FieldBestStart), start)
	b.Op1(MatchField(FieldBestEnd), end)
	b.Op1(MatchField(FieldBestID), R(RRepeatID))
	finish := b.Jump(Always)

	skipLabel := b.Label()
	b.SetTarget(skip, skipLabel)

	finishLabel := b.Label()
	b.SetTarget(finish, finishLabel)
	return b.Generate()
}

// Field offsets addressable on BaseMatch beyond FieldFastForward.
const (
	FieldBestStart int32 = iota + 1 // also the -1 "no result yet" sentinel
	FieldBestEnd
	FieldBestID
	FieldFastQuit
)
