package emit

import (
	"fmt"
	"strings"
)

type opKind int

const (
	opMov opKind = iota
	opOp2
	opJump
)

type instr struct {
	op       opKind
	dst, a, b Operand
	op2      Op2Kind
	setFlags bool
	cond     Cond
	target   int
}

// Builder assembles a routine into a linear instruction stream, exactly
// as Assembler describes, and hands back a Program once every Jump has
// been bound with SetTarget.
type Builder struct {
	instrs []instr
}

// NewBuilder returns an empty Builder ready to assemble one routine.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Label() Label { return Label(len(b.instrs)) }

func (b *Builder) Jump(cond Cond) Jump {
	idx := len(b.instrs)
	b.instrs = append(b.instrs, instr{op: opJump, cond: cond, target: -1})
	return Jump(idx)
}

func (b *Builder) SetTarget(j Jump, l Label) {
	b.instrs[int(j)].target = int(l)
}

func (b *Builder) Op1(dst, src Operand) {
	b.instrs = append(b.instrs, instr{op: opMov, dst: dst, a: src})
}

func (b *Builder) Op2(op Op2Kind, dst Operand, a, c Operand, setFlags bool) {
	b.instrs = append(b.instrs, instr{op: opOp2, dst: dst, a: a, b: c, op2: op, setFlags: setFlags})
}

func (b *Builder) Generate() (*Program, error) {
	for i, in := range b.instrs {
		if in.op == opJump && in.target < 0 {
			return nil, fmt.Errorf("emit: jump at instruction %d never bound to a label", i)
		}
	}
	out := make([]instr, len(b.instrs))
	copy(out, b.instrs)
	return &Program{instrs: out}, nil
}

// Program is the assembled form of one routine, ready to Run against a
// Context as many times as the stepping loop needs.
type Program struct {
	instrs []instr
}

// Disassemble renders one line per instruction, in the style a -verbose
// flag would print from a real assembler's listing. It exists for
// MATCH_VERBOSE tracing (Config.Trace); Run never calls it.
func (p *Program) Disassemble() string {
	var sb strings.Builder
	for i, in := range p.instrs {
		fmt.Fprintf(&sb, "%4d  ", i)
		switch in.op {
		case opMov:
			fmt.Fprintf(&sb, "mov   %s, %s\n", in.dst, in.a)
		case opOp2:
			name := "add"
			if in.op2 == Sub {
				name = "sub"
			}
			if in.dst.kind == kindDiscard {
				fmt.Fprintf(&sb, "cmp   %s, %s\n", in.a, in.b)
			} else {
				fmt.Fprintf(&sb, "%-5s %s, %s, %s\n", name, in.dst, in.a, in.b)
			}
		case opJump:
			fmt.Fprintf(&sb, "j%-5s -> %d\n", in.cond, in.target)
		}
	}
	return sb.String()
}

// MatchState holds the scalar fields of the in-flight match that a
// routine can read or write through BaseMatch operands. BestStart at
// -1 means no match has been recorded yet, the same sentinel
// internal/runtime uses for its own public Result.
type MatchState struct {
	FastForward bool
	FastQuit    bool
	BestStart   int32
	BestEnd     int32
	BestID      int32
}

// Field offsets addressable on BaseMatch.
const (
	FieldFastForward int32 = iota
)

// Context is the interpreter's CPU state for one routine invocation:
// the mutable register file plus the fixed per-call base pointers
// (current-state array, next-state array, match object) a real backend
// would hold in dedicated saved registers.
type Context struct {
	Regs  [numRegs]int64
	Curr  []int32
	Next  []int32
	Match *MatchState

	lastA, lastB int64
}

// Run executes the program once against ctx.
func (p *Program) Run(ctx *Context) {
	pc := 0
	for pc < len(p.instrs) {
		in := &p.instrs[pc]
		switch in.op {
		case opMov:
			ctx.store(in.dst, ctx.eval(in.a))
			pc++
		case opOp2:
			a := ctx.eval(in.a)
			b := ctx.eval(in.b)
			var res int64
			if in.op2 == Add {
				res = a + b
			} else {
				res = a - b
			}
			if in.dst.kind != kindDiscard {
				ctx.store(in.dst, res)
			}
			if in.setFlags {
				ctx.lastA, ctx.lastB = a, b
			}
			pc++
		case opJump:
			if ctx.takeBranch(in.cond) {
				pc = in.target
			} else {
				pc++
			}
		}
	}
}

func (ctx *Context) takeBranch(cond Cond) bool {
	if cond == Always {
		return true
	}
	a, b := ctx.lastA, ctx.lastB
	switch cond {
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	case Less:
		return a < b
	case LessEqual:
		return a <= b
	case Greater:
		return a > b
	case GreaterEqual:
		return a >= b
	case Below:
		return uint64(a) < uint64(b)
	case NotAbove:
		return uint64(a) <= uint64(b)
	case Above:
		return uint64(a) > uint64(b)
	case NotBelow:
		return uint64(a) >= uint64(b)
	default:
		return false
	}
}

func (ctx *Context) eval(op Operand) int64 {
	switch op.kind {
	case kindImm:
		return op.imm
	case kindReg:
		return ctx.Regs[op.reg]
	case kindMem:
		return ctx.load(*op.mem)
	default:
		return 0
	}
}

func (ctx *Context) store(op Operand, v int64) {
	switch op.kind {
	case kindReg:
		ctx.Regs[op.reg] = v
	case kindMem:
		ctx.storeMem(*op.mem, v)
	case kindDiscard:
	}
}

func (ctx *Context) load(m Mem) int64 {
	if m.Base == BaseMatch {
		return ctx.loadMatchField(m.Disp)
	}
	arr := ctx.arrayFor(m.Base)
	word := int32(ctx.eval(m.TermIndex))*m.Stride + m.Disp
	return int64(arr[word])
}

func (ctx *Context) storeMem(m Mem, v int64) {
	if m.Base == BaseMatch {
		ctx.storeMatchField(m.Disp, v)
		return
	}
	arr := ctx.arrayFor(m.Base)
	word := int32(ctx.eval(m.TermIndex))*m.Stride + m.Disp
	arr[word] = int32(v)
}

func (ctx *Context) arrayFor(base Base) []int32 {
	if base == BaseCurrState {
		return ctx.Curr
	}
	return ctx.Next
}

func (ctx *Context) loadMatchField(disp int32) int64 {
	switch disp {
	case FieldFastForward:
		return boolToInt64(ctx.Match.FastForward)
	case FieldFastQuit:
		return boolToInt64(ctx.Match.FastQuit)
	case FieldBestStart:
		return int64(ctx.Match.BestStart)
	case FieldBestEnd:
		return int64(ctx.Match.BestEnd)
	case FieldBestID:
		return int64(ctx.Match.BestID)
	default:
		return 0
	}
}

func (ctx *Context) storeMatchField(disp int32, v int64) {
	switch disp {
	case FieldFastForward:
		ctx.Match.FastForward = v != 0
	case FieldFastQuit:
		ctx.Match.FastQuit = v != 0
	case FieldBestStart:
		ctx.Match.BestStart = int32(v)
	case FieldBestEnd:
		ctx.Match.BestEnd = int32(v)
	case FieldBestID:
		ctx.Match.BestID = int32(v)
	}
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
