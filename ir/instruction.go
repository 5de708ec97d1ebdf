package ir

import "fmt"

// WidthMismatch is the spec's WidthMismatch error kind: operand widths are
// inconsistent for the opcode being constructed. Construction of the
// offending instruction is aborted; callers (codegen) must not add it to a
// mnemonic or block.
type WidthMismatch struct {
	Op  Opcode
	Msg string
}

func (e *WidthMismatch) Error() string {
	return fmt.Sprintf("width mismatch building %s: %s", e.Op, e.Msg)
}

// Instruction is one three-address IR operation: an opcode, its own printed
// symbol (independent of the opcode's default name so that, e.g., a future
// signed/unsigned pretty-printer distinction is possible), a destination
// Variable, and an ordered operand list. Once constructed successfully an
// Instruction's operands are never reordered or mutated except by the SSA
// renamer updating subscripts in place.
type Instruction struct {
	Op       Opcode
	Symbol   string
	Dest     Value
	Operands []Value
}

// NewInstruction validates and builds an Instruction per spec.md §4.2. dest
// must be a Variable with a strictly positive width; every operand must have
// a strictly positive width. Opcode-specific width rules:
//
//   - Slice: operands are (value, from, to); from and to must be Constants
//     with from <= to < value.Width().
//   - Concat: dest.Width() must equal the sum of the two operand widths.
//   - UExt/SExt: operands are (widthHint, value); widthHint must be a
//     Constant equal to dest.Width(). value's width is unconstrained (it is
//     being extended).
//   - every other opcode: every operand's width must equal dest.Width().
func NewInstruction(op Opcode, symbol string, dest Value, operands []Value) (*Instruction, error) {
	if !dest.IsVariable() {
		return nil, &WidthMismatch{Op: op, Msg: "destination is not a variable"}
	}
	if dest.Width() == 0 {
		return nil, &WidthMismatch{Op: op, Msg: "destination has zero width"}
	}
	for i, o := range operands {
		if o.Width() == 0 {
			return nil, &WidthMismatch{Op: op, Msg: fmt.Sprintf("operand %d has zero width", i)}
		}
	}

	switch op {
	case Slice:
		if len(operands) != 3 {
			return nil, &WidthMismatch{Op: op, Msg: "slice requires exactly 3 operands"}
		}
		from, okF := operands[1].ConstValue()
		to, okT := operands[2].ConstValue()
		if !okF || !okT {
			return nil, &WidthMismatch{Op: op, Msg: "slice bounds must be constants"}
		}
		if !(uint(from) <= uint(to) && uint(to) < operands[0].Width()) {
			return nil, &WidthMismatch{Op: op, Msg: "slice requires from <= to < value.width"}
		}
	case Concat:
		if len(operands) != 2 {
			return nil, &WidthMismatch{Op: op, Msg: "concat requires exactly 2 operands"}
		}
		if dest.Width() != operands[0].Width()+operands[1].Width() {
			return nil, &WidthMismatch{Op: op, Msg: "concat destination width must equal sum of operand widths"}
		}
	case UExt, SExt:
		if len(operands) != 2 {
			return nil, &WidthMismatch{Op: op, Msg: "ext requires exactly 2 operands"}
		}
		hint, ok := operands[0].ConstValue()
		if !ok {
			return nil, &WidthMismatch{Op: op, Msg: "ext width hint must be a constant"}
		}
		if uint(hint) != dest.Width() {
			return nil, &WidthMismatch{Op: op, Msg: "ext width hint must equal destination width"}
		}
	case Phi:
		for i, o := range operands {
			if o.Width() != dest.Width() {
				return nil, &WidthMismatch{Op: op, Msg: fmt.Sprintf("phi operand %d width disagrees with destination", i)}
			}
		}
	default:
		wantArity := op.Arity()
		if wantArity >= 0 && len(operands) != wantArity {
			return nil, &WidthMismatch{Op: op, Msg: fmt.Sprintf("%s requires %d operands, got %d", op, wantArity, len(operands))}
		}
		for i, o := range operands {
			if o.Width() != dest.Width() {
				return nil, &WidthMismatch{Op: op, Msg: fmt.Sprintf("operand %d width disagrees with destination", i)}
			}
		}
	}

	if symbol == "" {
		symbol = op.String()
	}
	return &Instruction{Op: op, Symbol: symbol, Dest: dest, Operands: operands}, nil
}

// String renders "dest := op operands..." for diagnostics.
func (i *Instruction) String() string {
	s := fmt.Sprintf("%s := %s", i.Dest, i.Symbol)
	for _, o := range i.Operands {
		s += " " + o.String()
	}
	return s
}
