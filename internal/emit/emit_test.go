package emit

import (
	"strings"
	"testing"
)

func newCtx(stride int32, terms int) *Context {
	return &Context{
		Next:  negOneFilled(terms * int(stride)),
		Match: &MatchState{},
	}
}

func negOneFilled(n int) []int32 {
	s := make([]int32, n)
	for i := range s {
		s[i] = -1
	}
	return s
}

func TestInsertTransitionClaimsUnvisitedSlot(t *testing.T) {
	d := &Driver{Stride: NoIDStride}
	prog, err := d.InsertTransition(false)
	if err != nil {
		t.Fatalf("InsertTransition: %v", err)
	}
	ctx := newCtx(NoIDStride, 3)
	ctx.Regs[RNextHead] = -1

	ctx.Regs[RScratch1] = 1 // term index
	ctx.Regs[RScratch2] = 5 // candidate start
	prog.Run(ctx)

	if got := ctx.Next[1*int(NoIDStride)+int(SlotStart)]; got != 5 {
		t.Fatalf("slot start = %d, want 5", got)
	}
	if got := ctx.Next[1*int(NoIDStride)+int(SlotLink)]; got != -1 {
		t.Fatalf("slot link = %d, want -1 (end of list)", got)
	}
	if ctx.Regs[RNextHead] != 1 {
		t.Fatalf("RNextHead = %d, want 1", ctx.Regs[RNextHead])
	}
}

func TestInsertTransitionLinksSecondClaim(t *testing.T) {
	d := &Driver{Stride: NoIDStride}
	prog, err := d.InsertTransition(false)
	if err != nil {
		t.Fatalf("InsertTransition: %v", err)
	}
	ctx := newCtx(NoIDStride, 3)
	ctx.Regs[RNextHead] = -1

	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 1
	prog.Run(ctx)
	ctx.Regs[RScratch1] = 2
	ctx.Regs[RScratch2] = 1
	prog.Run(ctx)

	if ctx.Regs[RNextHead] != 2 {
		t.Fatalf("RNextHead = %d, want 2 (most recent claim)", ctx.Regs[RNextHead])
	}
	if got := ctx.Next[2*int(NoIDStride)+int(SlotLink)]; got != 0 {
		t.Fatalf("slot 2 link = %d, want 0 (previous head)", got)
	}
}

func TestInsertTransitionIgnoresDuplicateWithoutIDCheck(t *testing.T) {
	d := &Driver{Stride: NoIDStride}
	prog, _ := d.InsertTransition(false)
	ctx := newCtx(NoIDStride, 2)
	ctx.Regs[RNextHead] = -1

	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 3
	prog.Run(ctx)
	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 9 // later candidate for the same already-claimed slot
	prog.Run(ctx)

	if got := ctx.Next[SlotStart]; got != 3 {
		t.Fatalf("slot start = %d, want 3 (first claim kept)", got)
	}
}

func TestInsertTransitionEarlierStartReplacesWhollyAndLaterStartIsDiscarded(t *testing.T) {
	d := &Driver{Stride: NoIDStride}
	prog, _ := d.InsertTransition(false)
	ctx := newCtx(NoIDStride, 2)
	ctx.Regs[RNextHead] = -1

	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 5
	prog.Run(ctx)

	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 9 // strictly later: discarded
	prog.Run(ctx)
	if got := ctx.Next[SlotStart]; got != 5 {
		t.Fatalf("slot start = %d, want 5 (later candidate discarded)", got)
	}

	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 2 // strictly earlier: replaces wholesale
	prog.Run(ctx)
	if got := ctx.Next[SlotStart]; got != 2 {
		t.Fatalf("slot start = %d, want 2 (earlier candidate replaces)", got)
	}
}

func TestInsertTransitionIDCheckMergesOnTieButNotOnReplace(t *testing.T) {
	d := &Driver{Stride: IDCheckStride}
	prog, err := d.InsertTransition(true)
	if err != nil {
		t.Fatalf("InsertTransition: %v", err)
	}
	ctx := newCtx(IDCheckStride, 2)
	ctx.Regs[RNextHead] = -1

	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 5
	ctx.Regs[RRepeatID] = 2
	prog.Run(ctx)

	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 5 // tied start
	ctx.Regs[RRepeatID] = 1 // lower id: merge keeps the higher one
	prog.Run(ctx)
	if got := ctx.Next[SlotID]; got != 2 {
		t.Fatalf("slot id = %d, want 2 (tie keeps the higher id)", got)
	}

	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 5 // tied start
	ctx.Regs[RRepeatID] = 7 // higher id: merge raises it
	prog.Run(ctx)
	if got := ctx.Next[SlotID]; got != 7 {
		t.Fatalf("slot id = %d, want 7 (tie raises to the higher id)", got)
	}
	if got := ctx.Next[SlotStart]; got != 5 {
		t.Fatalf("slot start = %d, want 5 (tie never touches start)", got)
	}

	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 2 // strictly earlier: wholesale replace, not a merge
	ctx.Regs[RRepeatID] = 1
	prog.Run(ctx)
	if got := ctx.Next[SlotID]; got != 1 {
		t.Fatalf("slot id = %d, want 1 (replace takes the new id outright)", got)
	}
	if got := ctx.Next[SlotStart]; got != 2 {
		t.Fatalf("slot start = %d, want 2", got)
	}
}

func TestEndCheckFirstResultAlwaysAccepted(t *testing.T) {
	d := &Driver{}
	prog, err := d.EndCheck(false, false)
	if err != nil {
		t.Fatalf("EndCheck: %v", err)
	}
	ctx := &Context{Match: &MatchState{BestStart: -1}}
	ctx.Regs[RScratch1] = 2
	ctx.Regs[RScratch2] = 7
	prog.Run(ctx)

	if ctx.Match.BestStart != 2 || ctx.Match.BestEnd != 7 {
		t.Fatalf("Match = %+v, want {BestStart:2 BestEnd:7}", ctx.Match)
	}
}

func TestEndCheckGreedyOverwritesOnNotLaterStart(t *testing.T) {
	d := &Driver{}
	prog, _ := d.EndCheck(false, false)
	ctx := &Context{Match: &MatchState{BestStart: 3, BestEnd: 5}}

	ctx.Regs[RScratch1] = 1
	ctx.Regs[RScratch2] = 2
	prog.Run(ctx)
	if ctx.Match.BestStart != 1 || ctx.Match.BestEnd != 2 {
		t.Fatalf("a strictly earlier start should overwrite: %+v", ctx.Match)
	}

	ctx.Regs[RScratch1] = 4
	ctx.Regs[RScratch2] = 20
	prog.Run(ctx)
	if ctx.Match.BestStart != 1 || ctx.Match.BestEnd != 2 {
		t.Fatalf("a later start must not overwrite: %+v", ctx.Match)
	}

	ctx.Regs[RScratch1] = 1
	ctx.Regs[RScratch2] = 9
	prog.Run(ctx)
	if ctx.Match.BestEnd != 9 {
		t.Fatalf("a tied start should still overwrite, since this step's end is the later one: %+v", ctx.Match)
	}
}

func TestEndCheckNonGreedyRequiresStrictlyEarlierStart(t *testing.T) {
	d := &Driver{}
	prog, err := d.EndCheck(true, false)
	if err != nil {
		t.Fatalf("EndCheck: %v", err)
	}
	ctx := &Context{Match: &MatchState{BestStart: 3, BestEnd: 5}}

	ctx.Regs[RScratch1] = 3 // tied start: non-greedy does not overwrite
	ctx.Regs[RScratch2] = 50
	prog.Run(ctx)
	if ctx.Match.BestEnd != 5 {
		t.Fatalf("non-greedy must not overwrite on a tied start: %+v", ctx.Match)
	}

	ctx.Regs[RScratch1] = 1
	ctx.Regs[RScratch2] = 2
	prog.Run(ctx)
	if ctx.Match.BestStart != 1 || ctx.Match.BestEnd != 2 {
		t.Fatalf("non-greedy should overwrite on a strictly earlier start: %+v", ctx.Match)
	}
}

func TestDisassembleProducesOneLinePerInstruction(t *testing.T) {
	d := &Driver{Stride: IDCheckStride}
	prog, err := d.InsertTransition(true)
	if err != nil {
		t.Fatalf("InsertTransition: %v", err)
	}
	out := prog.Disassemble()
	if out == "" {
		t.Fatal("Disassemble returned empty output")
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != len(prog.instrs) {
		t.Fatalf("got %d lines, want %d (one per instruction)", len(lines), len(prog.instrs))
	}
}

func TestEndCheckNonGreedySetsFastQuitWhenMatchBeginAnchored(t *testing.T) {
	d := &Driver{}
	prog, err := d.EndCheck(true, true)
	if err != nil {
		t.Fatalf("EndCheck: %v", err)
	}
	ctx := &Context{Match: &MatchState{BestStart: -1}}
	ctx.Regs[RScratch1] = 0
	ctx.Regs[RScratch2] = 3
	prog.Run(ctx)

	if !ctx.Match.FastQuit {
		t.Fatalf("expected FastQuit once a non-greedy, begin-anchored match is recorded")
	}
}
