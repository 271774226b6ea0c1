// Package ir defines the tagged item type shared by every stage of the
// jitregex compilation pipeline: the parser stack, the transitions array,
// and the search-state array all traffic in the same (kind, value) pair.
package ir

// Kind tags an Item with its interpretation of Value.
type Kind int

const (
	Begin Kind = iota
	End
	Char
	ID
	RngStart
	RngEnd
	RngChar
	RngLeft
	RngRight
	Branch
	Jump
	OpenBr
	CloseBr
	Select
	Asterisk
	Plus
	Question
)

func (k Kind) String() string {
	switch k {
	case Begin:
		return "BEGIN"
	case End:
		return "END"
	case Char:
		return "CHAR"
	case ID:
		return "ID"
	case RngStart:
		return "RNG_START"
	case RngEnd:
		return "RNG_END"
	case RngChar:
		return "RNG_CHAR"
	case RngLeft:
		return "RNG_LEFT"
	case RngRight:
		return "RNG_RIGHT"
	case Branch:
		return "BRANCH"
	case Jump:
		return "JUMP"
	case OpenBr:
		return "OPEN_BR"
	case CloseBr:
		return "CLOSE_BR"
	case Select:
		return "SELECT"
	case Asterisk:
		return "ASTERISK"
	case Plus:
		return "PLUS"
	case Question:
		return "QUESTION"
	default:
		return "UNKNOWN"
	}
}

// Item is the tagged (kind, value) pair that flows through every stage:
// a character code, a numeric id, or an index into the transitions array
// for Branch/Jump, depending on Kind.
type Item struct {
	Kind  Kind
	Value int32
}

// Flags control parsing and code generation. They are a bitmask so the
// compiler, parser and emitter can all test a single compile-time value.
type Flags uint32

const (
	// MatchBegin anchors the match to the start of the scanned input (^).
	MatchBegin Flags = 1 << iota
	// MatchEnd requires the match to reach the end of consumed input ($).
	MatchEnd
	// NonGreedy prefers the shortest match sharing the leftmost begin.
	NonGreedy
	// Newline makes '.' and negated classes exclude '\n' and '\r'.
	Newline
	// Verbose enables diagnostic tracing to Config.Trace during compile
	// and (optionally) during matching.
	Verbose
	// Wide selects 16-bit code units instead of 8-bit bytes. Compile-time
	// only, never mixed within one Machine.
	Wide

	// idCheck is derived internally (never set by a caller) when the
	// pattern contains a `{n!}` id annotation with n > 0.
	idCheck Flags = 1 << 31
)

// WithIDCheck returns f with the internal ID_CHECK bit set.
func (f Flags) WithIDCheck() Flags { return f | idCheck }

// IDCheck reports whether the ID_CHECK bit is set.
func (f Flags) IDCheck() bool { return f&idCheck != 0 }

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }
