// Package jitregex compiles a pattern into a Machine that runs a
// Thompson-style NFA simulation one byte at a time, and drives it
// through a Match object that can stream input across successive
// Continue calls in bounded memory.
//
// Basic usage:
//
//	m, err := jitregex.Compile(`ab*c`, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	begin, end, _, ok := m.Find([]byte("xyabbbcz"))
//
// Streaming usage:
//
//	m := jitregex.MustCompile(`ab*c`, 0)
//	x, _ := m.NewMatch()
//	x.Continue(chunk1)
//	x.Continue(chunk2)
//	begin, end, id := x.Result()
package jitregex

import (
	"io"

	"github.com/jitregex/jitregex/internal/accel"
	"github.com/jitregex/jitregex/internal/ir"
	"github.com/jitregex/jitregex/internal/runtime"
)

// Flags control parsing and matching. MatchBegin/MatchEnd are also set
// implicitly by a leading ^ or trailing $ in the pattern text.
type Flags = ir.Flags

const (
	MatchBegin Flags = ir.MatchBegin
	MatchEnd   Flags = ir.MatchEnd
	NonGreedy  Flags = ir.NonGreedy
	Newline    Flags = ir.Newline
	Verbose    Flags = ir.Verbose
	Wide       Flags = ir.Wide
)

// Sentinel errors. Use errors.Is to test for them through any wrapping.
var (
	ErrInvalidRegex = ir.ErrInvalidRegex
	ErrMemory       = ir.ErrMemory
)

// Machine is a compiled pattern, safe to share across goroutines and to
// drive any number of independent Match attempts.
type Machine = runtime.Machine

// Match is one in-flight matching attempt against a Machine.
type Match = runtime.Match

// Config customizes compilation beyond what Flags covers.
type Config struct {
	// Trace, if non-nil, receives a disassembly listing (one line per
	// instruction) of each compiled emit.Program when Verbose is also set
	// in the compile Flags.
	Trace io.Writer

	// DisableFastForward turns off the internal/accel prefilter, always
	// stepping one byte at a time. Matching is identical either way;
	// this exists for benchmarking and for patterns where the caller
	// knows the prefilter will never pay for itself.
	DisableFastForward bool
}

// DefaultConfig returns the zero-value Config: no trace sink, fast
// forward enabled.
func DefaultConfig() Config {
	return Config{}
}

// Compile parses pattern under flags and builds a Machine ready for
// NewMatch. Anchors (^, $) and the {n!} id-check extension are derived
// from the pattern text itself.
func Compile(pattern string, flags Flags) (*Machine, error) {
	return CompileWithConfig(pattern, flags, DefaultConfig())
}

// MustCompile is Compile but panics on error, for patterns known valid
// at init time.
func MustCompile(pattern string, flags Flags) *Machine {
	m, err := Compile(pattern, flags)
	if err != nil {
		panic("jitregex: Compile(" + pattern + "): " + err.Error())
	}
	return m
}

// CompileWithConfig is Compile with explicit Config control over
// tracing and the fast-forward prefilter.
func CompileWithConfig(pattern string, flags Flags, cfg Config) (*Machine, error) {
	var m *Machine
	var err error
	if cfg.Trace != nil {
		m, err = runtime.CompileTraced(pattern, flags, cfg.Trace)
	} else {
		m, err = runtime.Compile(pattern, flags)
	}
	if err != nil {
		return nil, err
	}
	if !cfg.DisableFastForward {
		if s := accel.Build(m); s != nil {
			m.SetScanner(s)
		}
	}
	return m, nil
}
