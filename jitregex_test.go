package jitregex

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestCompileAndFind(t *testing.T) {
	cases := []struct {
		name                 string
		pattern              string
		input                string
		flags                Flags
		begin, end, id       int
		ok                   bool
	}{
		{"kleene-star", "ab*c", "xyabbbcz", 0, 2, 7, 0, true},
		{"alternation", "a(b|c)d", "__acd__", 0, 2, 5, 0, true},
		{"begin-anchor", "^foo", "foobar", 0, 0, 3, 0, true},
		{"end-anchor", "bar$", "foobar", 0, 3, 6, 0, true},
		{"id-check", "a{3!}b", "xaabz", 0, 2, 4, 3, true},
		{"no-match", "xyz", "abcdef", 0, -1, 0, 0, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, err := Compile(c.pattern, c.flags)
			if err != nil {
				t.Fatalf("Compile(%q): %v", c.pattern, err)
			}
			defer m.Close()

			begin, end, id, ok := m.Find([]byte(c.input))
			if ok != c.ok {
				t.Fatalf("Find ok = %v, want %v", ok, c.ok)
			}
			if !ok {
				return
			}
			if begin != c.begin || end != c.end || id != c.id {
				t.Fatalf("Find = (%d,%d,%d), want (%d,%d,%d)", begin, end, id, c.begin, c.end, c.id)
			}
		})
	}
}

func TestMustCompilePanicsOnInvalidPattern(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustCompile did not panic on an invalid pattern")
		}
	}()
	MustCompile("(unterminated", 0)
}

func TestCompileReturnsWrappedInvalidRegexError(t *testing.T) {
	_, err := Compile("(unterminated", 0)
	if !errors.Is(err, ErrInvalidRegex) {
		t.Fatalf("err = %v, want wrapping ErrInvalidRegex", err)
	}
}

func TestMachineMatchBool(t *testing.T) {
	m, err := Compile("ab*c", 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer m.Close()

	ok, err := m.Match([]byte("xyabbbcz"))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !ok {
		t.Fatal("Match = false, want true")
	}

	ok, err = m.Match([]byte("nothing here"))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if ok {
		t.Fatal("Match = true, want false")
	}
}

func TestStreamingMatch(t *testing.T) {
	m := MustCompile("ab*c", 0)
	defer m.Close()

	x, err := m.NewMatch()
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	defer x.Close()

	if err := x.Continue([]byte("xyab")); err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if err := x.Continue([]byte("bbcz")); err != nil {
		t.Fatalf("Continue: %v", err)
	}

	begin, end, _ := x.Result()
	if begin != 2 || end != 7 {
		t.Fatalf("Result = (%d,%d), want (2,7)", begin, end)
	}
}

func TestScanReader(t *testing.T) {
	m := MustCompile("ab*c", 0)
	defer m.Close()

	x, err := m.NewMatch()
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	defer x.Close()

	begin, end, _, err := x.ScanReader(strings.NewReader("xyabbbcz"), 3)
	if err != nil {
		t.Fatalf("ScanReader: %v", err)
	}
	if begin != 2 || end != 7 {
		t.Fatalf("ScanReader = (%d,%d), want (2,7)", begin, end)
	}
}

func TestCompileWithConfigFastForwardIsOptional(t *testing.T) {
	withFF, err := CompileWithConfig("hello.*world", 0, DefaultConfig())
	if err != nil {
		t.Fatalf("CompileWithConfig: %v", err)
	}
	defer withFF.Close()

	noFF, err := CompileWithConfig("hello.*world", 0, Config{DisableFastForward: true})
	if err != nil {
		t.Fatalf("CompileWithConfig: %v", err)
	}
	defer noFF.Close()

	input := []byte("xxxxxhelloXXXXworldyyyy")
	b1, e1, _, ok1 := withFF.Find(input)
	b2, e2, _, ok2 := noFF.Find(input)
	if ok1 != ok2 || b1 != b2 || e1 != e2 {
		t.Fatalf("fast-forward changed the result: (%d,%d,%v) vs (%d,%d,%v)", b1, e1, ok1, b2, e2, ok2)
	}
}

func TestCompileWithConfigTraceWritesDisassembly(t *testing.T) {
	var buf bytes.Buffer
	_, err := CompileWithConfig("ab*c", Verbose, Config{Trace: &buf})
	if err != nil {
		t.Fatalf("CompileWithConfig: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("Trace sink received no output under the Verbose flag")
	}
}
