// Package transgen turns a parsed item stack into the transitions array
// that drives both state annotation and code emission: a flat array of
// (kind, value) edges built back-to-front, with
// BRANCH/JUMP threading resolved by backpatching through a depth stack
// as brackets, alternation and the three repetition operators close.
package transgen

import (
	"fmt"

	"github.com/jitregex/jitregex/internal/ir"
	"github.com/jitregex/jitregex/internal/itemstack"
)

// Generate consumes stk entirely (it is drained top to bottom) and
// returns a transitions array of exactly dfaSize entries. Entries are
// filled back-to-front: the item popped first from the parser's stack
// (closest to the pattern's end) is written to the highest index.
func Generate(stk *itemstack.Stack, dfaSize int32) ([]ir.Item, error) {
	transitions := make([]ir.Item, dfaSize)
	ptr := int(dfaSize)
	depth := itemstack.New()

	put := func(kind ir.Kind, value int32) error {
		if ptr == 0 {
			return fmt.Errorf("transgen: transitions array overflow")
		}
		ptr--
		transitions[ptr] = ir.Item{Kind: kind, Value: value}
		return nil
	}

	// handleIteratives closes out any ASTERISK/PLUS/QUESTION markers now
	// exposed on top of depth: reaching the operand they apply to means
	// their loop-back edge can finally be backpatched.
	handleIteratives := func() error {
		for !depth.Empty() {
			top := *depth.Top()
			switch top.Kind {
			case ir.Asterisk:
				if transitions[top.Value].Kind != ir.Branch {
					return fmt.Errorf("transgen: malformed asterisk backpatch target")
				}
				transitions[top.Value].Value = int32(ptr)
				if err := put(ir.Branch, top.Value+1); err != nil {
					return err
				}
			case ir.Plus:
				if transitions[top.Value].Kind != ir.Branch {
					return fmt.Errorf("transgen: malformed plus backpatch target")
				}
				transitions[top.Value].Value = int32(ptr)
			case ir.Question:
				if err := put(ir.Branch, top.Value); err != nil {
					return err
				}
			default:
				return nil
			}
			depth.Pop()
		}
		return nil
	}

	for !stk.Empty() {
		item := stk.Pop()
		switch item.Kind {
		case ir.Begin, ir.OpenBr:
			if depth.Empty() {
				return nil, fmt.Errorf("transgen: depth stack underflow at %v", item.Kind)
			}
			top := depth.Pop()
			if top.Kind == ir.Select {
				if err := put(ir.Branch, top.Value+1); err != nil {
					return nil, err
				}
			} else if top.Kind != ir.CloseBr {
				return nil, fmt.Errorf("transgen: expected CLOSE_BR or SELECT on depth, got %v", top.Kind)
			}
			if stk.Empty() {
				if err := put(ir.Begin, 0); err != nil {
					return nil, err
				}
			} else if err := handleIteratives(); err != nil {
				return nil, err
			}

		case ir.End, ir.CloseBr:
			if item.Kind == ir.End {
				if err := put(ir.End, 0); err != nil {
					return nil, err
				}
			}
			if err := depth.Push(ir.CloseBr, int32(ptr)); err != nil {
				return nil, err
			}

		case ir.Select:
			if depth.Empty() {
				return nil, fmt.Errorf("transgen: depth stack underflow at SELECT")
			}
			top := depth.Top()
			if top.Kind == ir.Select {
				if transitions[top.Value].Kind != ir.Jump {
					return nil, fmt.Errorf("transgen: malformed select chain")
				}
				if err := put(ir.Branch, top.Value+1); err != nil {
					return nil, err
				}
				if err := put(ir.Jump, top.Value); err != nil {
					return nil, err
				}
				top.Value = int32(ptr)
			} else if top.Kind == ir.CloseBr {
				top.Kind = ir.Select
				if err := put(ir.Jump, top.Value); err != nil {
					return nil, err
				}
				top.Value = int32(ptr)
			} else {
				return nil, fmt.Errorf("transgen: expected CLOSE_BR or SELECT on depth, got %v", top.Kind)
			}

		case ir.Asterisk, ir.Plus, ir.Question:
			if item.Kind != ir.Question {
				if err := put(ir.Branch, 0); err != nil {
					return nil, err
				}
			}
			if err := depth.Push(item.Kind, int32(ptr)); err != nil {
				return nil, err
			}

		case ir.Char, ir.RngStart:
			if err := put(item.Kind, item.Value); err != nil {
				return nil, err
			}
			if err := handleIteratives(); err != nil {
				return nil, err
			}

		default:
			// ID, RngEnd, RngChar, RngLeft, RngRight pass straight through.
			if err := put(item.Kind, item.Value); err != nil {
				return nil, err
			}
		}
	}

	if ptr != 0 {
		return nil, fmt.Errorf("transgen: dfa size mismatch, %d slots unfilled", ptr)
	}
	if !depth.Empty() {
		return nil, fmt.Errorf("transgen: depth stack not drained")
	}
	return transitions, nil
}
