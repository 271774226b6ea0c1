// Package emit implements the abstract low-level code generator: a small
// register-transfer IR (move, add/sub with condition flags, label-
// relative jumps), and a bytecode backend that assembles it into a
// Program a stepping loop can run directly. The backend is a threaded
// bytecode interpreter: the Assembler interface is the same shape a
// native JIT backend would expose, but Generate produces an
// interpretable Program instead of executable memory.
package emit

import "fmt"

// Reg names one of the five mutable integer registers the bytecode
// backend's interpreter loop keeps in its register file. Three further
// values — the current-state array, the next-state array, and the
// owning match object — are fixed per call and supplied through the
// interpreter's Context rather than the register file, since a native
// JIT backend would dedicate saved registers to them once at routine
// entry and never reload them.
type Reg int

const (
	RTemp Reg = iota
	RScratch1
	RScratch2
	RNextHead
	RRepeatID
	numRegs
)

func (r Reg) String() string {
	switch r {
	case RTemp:
		return "temp"
	case RScratch1:
		return "scratch1"
	case RScratch2:
		return "scratch2"
	case RNextHead:
		return "next_head"
	case RRepeatID:
		return "repeat_id"
	default:
		return "reg?"
	}
}

// Base names one of the interpreter's fixed per-call array/struct
// handles, addressed with a word-granular displacement (and, for the
// two state arrays, a term-index scale) rather than a byte offset: our memory is
// a Go []int32 slice, not raw bytes, so there is no sizeof(word) to
// multiply by.
type Base int

const (
	BaseCurrState Base = iota
	BaseNextState
	BaseMatch
)

// operandKind tags which field of Operand is meaningful.
type operandKind int

const (
	kindReg operandKind = iota
	kindMem
	kindImm
	kindDiscard
)

// Discard is a destination Operand meaning "compute the flags, keep no
// result" — the same compare-via-subtract idiom compile_cond_tran uses
// when it only needs the SUB instruction's flags, not its difference.
var Discard = Operand{kind: kindDiscard}

// Operand is a tagged union: a register, a memory reference, or an
// immediate constant.
type Operand struct {
	kind operandKind
	reg  Reg
	mem  *Mem
	imm  int64
}

// Mem addresses one word within a Base array: CurrState/NextState are
// indexed as base+term*stride+disp (stride is the runtime's no_states,
// supplied by the caller building the term index), Match fields are
// addressed as base+disp with TermIndex unused.
type Mem struct {
	Base      Base
	TermIndex Operand // term index, scaled by Stride; zero Operand for Match fields
	Stride    int32
	Disp      int32
}

// R wraps a register as an Operand.
func R(r Reg) Operand { return Operand{kind: kindReg, reg: r} }

// Imm wraps a constant as an Operand.
func Imm(v int64) Operand { return Operand{kind: kindImm, imm: v} }

// M wraps a memory reference as an Operand.
func M(m Mem) Operand { return Operand{kind: kindMem, mem: &m} }

// MatchField addresses a scalar field of the Match object at word
// offset disp (FastForward, for instance).
func MatchField(disp int32) Operand {
	return M(Mem{Base: BaseMatch, Disp: disp})
}

// TermWord addresses word disp of the state-array slot for the term
// whose index operand is idx, in an array of the given stride.
func TermWord(base Base, idx Operand, stride, disp int32) Operand {
	return M(Mem{Base: base, TermIndex: idx, Stride: stride, Disp: disp})
}

// Cond is a condition code tested by a conditional Jump; it mirrors the
// SLJIT_C_* codes used after an Op2 with a flag-setting variant.
type Cond int

const (
	Always Cond = iota
	Equal
	NotEqual
	Less        // signed <
	LessEqual   // signed <=
	Greater     // signed >
	GreaterEqual
	Below       // unsigned <
	NotAbove    // unsigned <=
	Above       // unsigned >
	NotBelow    // unsigned >=
)

// Op2Kind names the arithmetic op of a two-operand instruction.
type Op2Kind int

const (
	Add Op2Kind = iota
	Sub
)

func (c Cond) String() string {
	switch c {
	case Always:
		return "mp"
	case Equal:
		return "eq"
	case NotEqual:
		return "ne"
	case Less:
		return "lt"
	case LessEqual:
		return "le"
	case Greater:
		return "gt"
	case GreaterEqual:
		return "ge"
	case Below:
		return "b"
	case NotAbove:
		return "na"
	case Above:
		return "a"
	case NotBelow:
		return "nb"
	default:
		return "?"
	}
}

func (o Operand) String() string {
	switch o.kind {
	case kindReg:
		return o.reg.String()
	case kindImm:
		return fmt.Sprintf("#%d", o.imm)
	case kindMem:
		return o.mem.String()
	case kindDiscard:
		return "_"
	default:
		return "?"
	}
}

func (m Mem) String() string {
	if m.Base == BaseMatch {
		return fmt.Sprintf("match[%d]", m.Disp)
	}
	name := "next"
	if m.Base == BaseCurrState {
		name = "curr"
	}
	return fmt.Sprintf("%s[%s*%d+%d]", name, m.TermIndex, m.Stride, m.Disp)
}

// Label is an opaque position fixed up at Generate time.
type Label int

// Jump is a forward or backward reference created by Jump and
// resolved with SetTarget before Generate is called.
type Jump int

// Assembler is the abstract code-generation surface: a Driver builds a
// routine purely in terms of these calls, never touching the concrete
// bytecode representation directly.
type Assembler interface {
	// Label marks the current position for later jumps.
	Label() Label
	// Jump emits a conditional (or, with Always, unconditional) branch
	// to a target resolved later with SetTarget.
	Jump(cond Cond) Jump
	// SetTarget binds a previously emitted Jump to a Label.
	SetTarget(j Jump, l Label)
	// Op1 emits dst = src (register, memory, or immediate source;
	// register or memory destination).
	Op1(dst, src Operand)
	// Op2 emits dst = a op b. When setFlags is true, the result also
	// updates the condition flags a following Jump tests; dst may be
	// Discard when only the flags are wanted, the usual "compare via
	// subtract" idiom.
	Op2(op Op2Kind, dst Operand, a, b Operand, setFlags bool)
	// Generate finalizes the routine into a runnable Program.
	Generate() (*Program, error)
}
