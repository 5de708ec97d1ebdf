// Package codegen implements the typed IR builder from spec.md §4.3: named
// and anonymous constructors, one pair per opcode, that infer operand
// widths and enforce width consistency while appending instructions to a
// mnemonic under construction.
package codegen

import (
	"github.com/Urethramancer/panopticon/decoder"
	"github.com/Urethramancer/panopticon/ir"
)

// Builder accumulates the IR instructions for one mnemonic. A Builder must
// be discarded, not reused, once any method reports an error — per
// spec.md §4.3, a width mismatch aborts the current mnemonic's
// construction cleanly, and the caller (a decoder semantic action) should
// simply return the error so the match fails without touching the block
// under assembly.
type Builder struct {
	arch   decoder.Architecture
	instrs []*ir.Instruction
	err    error
}

// New returns a Builder that resolves architectural widths through arch.
func New(arch decoder.Architecture) *Builder {
	return &Builder{arch: arch}
}

// Err returns the first width-mismatch error encountered, if any.
func (b *Builder) Err() error { return b.err }

// Instructions returns the accumulated instruction list. Only meaningful
// when Err() is nil.
func (b *Builder) Instructions() []*ir.Instruction {
	return b.instrs
}

// Ref returns a Value referring to an architectural or temporary name. Its
// width is resolved immediately if the architecture recognizes the name
// (step 1 of spec.md §4.3's width-inference algorithm); otherwise it is
// left at zero to be inferred from sibling operands when the instruction
// using it is built.
func (b *Builder) Ref(name string) ir.Value {
	width := uint(0)
	if b.arch.Valid(name) {
		width = b.arch.Width(name)
	}
	return ir.Var(ir.NewName(name), width)
}

// commonWidth implements step (3) of spec.md §4.3: every already-widthed
// value among dest/operands must agree; the result is that common width,
// or 0 if nothing yet has a declared width.
func commonWidth(destWidth uint, operands []ir.Value) (uint, error) {
	w := destWidth
	for _, o := range operands {
		if o.Width() == 0 {
			continue
		}
		if w == 0 {
			w = o.Width()
			continue
		}
		if w != o.Width() {
			return 0, &ir.WidthMismatch{Msg: "operand widths disagree and destination has no declared width to settle it"}
		}
	}
	return w, nil
}

func fillWidth(v ir.Value, w uint) ir.Value {
	if v.Width() == 0 {
		return v.WithWidth(w)
	}
	return v
}

// destValue resolves the destination's width per spec.md §4.3 step (4): if
// the architecture declares a width for destName, it is authoritative and
// must match the inferred common width; otherwise the inferred width from
// the operands is used as-is.
func (b *Builder) destValue(destName string, inferred uint) (ir.Value, error) {
	width := inferred
	if b.arch.Valid(destName) {
		declared := b.arch.Width(destName)
		if inferred != 0 && declared != inferred {
			return ir.Value{}, &ir.WidthMismatch{Msg: "destination's architectural width disagrees with inferred operand width"}
		}
		width = declared
	}
	return ir.Var(ir.NewName(destName), width), nil
}

// build resolves widths per spec.md §4.3 and appends the instruction, or
// records the first error and leaves the Builder unusable for further
// chaining (callers should check Err() after every call in a sequence, or
// simply let a later call no-op once an error is latched).
func (b *Builder) build(op ir.Opcode, symbol, destName string, operands []ir.Value) ir.Value {
	if b.err != nil {
		return ir.Value{}
	}

	switch op {
	case ir.Slice:
		// operands: value, from, to — only operand 0's width participates
		// in common-width inference; from/to are constant indices.
		w, err := commonWidth(0, operands[:1])
		if err != nil {
			b.err = err
			return ir.Value{}
		}
		if w == 0 {
			b.err = &ir.WidthMismatch{Op: op, Msg: "slice source value has no resolvable width"}
			return ir.Value{}
		}
		operands[0] = fillWidth(operands[0], w)
		from, _ := operands[1].ConstValue()
		to, _ := operands[2].ConstValue()
		dest, err := b.destValue(destName, uint(to)-uint(from)+1)
		if err != nil {
			b.err = err
			return ir.Value{}
		}
		inst, err := ir.NewInstruction(op, symbol, dest, operands)
		if err != nil {
			b.err = err
			return ir.Value{}
		}
		b.instrs = append(b.instrs, inst)
		return dest

	case ir.Concat:
		lo, hi := operands[0], operands[1]
		if lo.Width() == 0 || hi.Width() == 0 {
			b.err = &ir.WidthMismatch{Op: op, Msg: "concat operands must have resolvable widths"}
			return ir.Value{}
		}
		dest, err := b.destValue(destName, lo.Width()+hi.Width())
		if err != nil {
			b.err = err
			return ir.Value{}
		}
		inst, err := ir.NewInstruction(op, symbol, dest, operands)
		if err != nil {
			b.err = err
			return ir.Value{}
		}
		b.instrs = append(b.instrs, inst)
		return dest

	case ir.UExt, ir.SExt:
		hint, ok := operands[0].ConstValue()
		if !ok {
			b.err = &ir.WidthMismatch{Op: op, Msg: "ext width hint must be a constant"}
			return ir.Value{}
		}
		dest, err := b.destValue(destName, uint(hint))
		if err != nil {
			b.err = err
			return ir.Value{}
		}
		inst, err := ir.NewInstruction(op, symbol, dest, operands)
		if err != nil {
			b.err = err
			return ir.Value{}
		}
		b.instrs = append(b.instrs, inst)
		return dest

	default:
		w, err := commonWidth(0, operands)
		if err != nil {
			b.err = err
			return ir.Value{}
		}
		dest, err := b.destValue(destName, w)
		if err != nil {
			b.err = err
			return ir.Value{}
		}
		if dest.Width() == 0 {
			b.err = &ir.WidthMismatch{Op: op, Msg: "no operand or architectural declaration resolves a width"}
			return ir.Value{}
		}
		for i, o := range operands {
			operands[i] = fillWidth(o, dest.Width())
		}
		inst, err := ir.NewInstruction(op, symbol, dest, operands)
		if err != nil {
			b.err = err
			return ir.Value{}
		}
		b.instrs = append(b.instrs, inst)
		return dest
	}
}

func (b *Builder) anonName() string {
	return b.arch.FreshTemp()
}
