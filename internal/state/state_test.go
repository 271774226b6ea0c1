package state

import (
	"testing"

	"github.com/jitregex/jitregex/internal/ir"
)

func TestAnnotateSimpleConcatenation(t *testing.T) {
	transitions := []ir.Item{
		{Kind: ir.Begin, Value: 0},
		{Kind: ir.Char, Value: 'a'},
		{Kind: ir.Char, Value: 'b'},
		{Kind: ir.End, Value: 0},
	}
	res := Annotate(transitions)
	wantTerms := []int32{0, 1, 2, 0}
	for i, want := range wantTerms {
		if res.States[i].Term != want {
			t.Fatalf("States[%d].Term = %d, want %d", i, res.States[i].Term, want)
		}
	}
	if res.TermsSize != 3 {
		t.Fatalf("TermsSize = %d, want 3", res.TermsSize)
	}
	if res.IDCheck {
		t.Fatalf("IDCheck should be false")
	}
}

func TestAnnotateCharClassSharesTermAcrossSpan(t *testing.T) {
	// [a-z]: RngStart, RngLeft, RngRight, RngEnd
	transitions := []ir.Item{
		{Kind: ir.Begin, Value: 0},
		{Kind: ir.RngStart, Value: 0},
		{Kind: ir.RngLeft, Value: 'a'},
		{Kind: ir.RngRight, Value: 'z'},
		{Kind: ir.RngEnd, Value: 0},
		{Kind: ir.End, Value: 0},
	}
	res := Annotate(transitions)
	if res.States[1].Term != res.States[4].Term {
		t.Fatalf("RngStart term %d != RngEnd term %d", res.States[1].Term, res.States[4].Term)
	}
	if res.States[2].Term != -1 || res.States[3].Term != -1 {
		t.Fatalf("range members should have Term -1, got %+v %+v", res.States[2], res.States[3])
	}
	if res.TermsSize != 2 {
		t.Fatalf("TermsSize = %d, want 2", res.TermsSize)
	}
	if res.LongestRangeSize != 3 {
		t.Fatalf("LongestRangeSize = %d, want 3", res.LongestRangeSize)
	}
}

func TestAnnotateIDCheck(t *testing.T) {
	transitions := []ir.Item{
		{Kind: ir.Begin, Value: 0},
		{Kind: ir.Char, Value: 'a'},
		{Kind: ir.ID, Value: 3},
		{Kind: ir.End, Value: 0},
	}
	res := Annotate(transitions)
	if !res.IDCheck {
		t.Fatalf("expected IDCheck true for ID value > 0")
	}
	if res.States[2].Term != -1 {
		t.Fatalf("ID term should be -1, got %d", res.States[2].Term)
	}
}

func TestAnnotateScratchStartsUncolored(t *testing.T) {
	transitions := []ir.Item{{Kind: ir.Begin, Value: 0}, {Kind: ir.End, Value: 0}}
	res := Annotate(transitions)
	for i, s := range res.States {
		if s.Value != -1 {
			t.Fatalf("state %d Value = %d, want -1", i, s.Value)
		}
	}
}
