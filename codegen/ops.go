package codegen

import "github.com/Urethramancer/panopticon/ir"

// Each IR opcode from spec.md §3 gets a named constructor (caller supplies
// the destination name) and an anonymous one (a fresh temporary from the
// architecture's FreshTemp). Both return the destination Value so callers
// can chain it as an operand to the next instruction.

func (b *Builder) Not(symbol, dest string, a ir.Value) ir.Value {
	return b.build(ir.Not, symbol, dest, []ir.Value{a})
}

func (b *Builder) NotAnon(symbol string, a ir.Value) ir.Value {
	return b.Not(symbol, b.anonName(), a)
}

func (b *Builder) And(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.And, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) AndAnon(symbol string, a, c ir.Value) ir.Value {
	return b.And(symbol, b.anonName(), a, c)
}

func (b *Builder) Or(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.Or, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) OrAnon(symbol string, a, c ir.Value) ir.Value {
	return b.Or(symbol, b.anonName(), a, c)
}

func (b *Builder) Xor(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.Xor, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) XorAnon(symbol string, a, c ir.Value) ir.Value {
	return b.Xor(symbol, b.anonName(), a, c)
}

func (b *Builder) Assign(symbol, dest string, a ir.Value) ir.Value {
	return b.build(ir.Assign, symbol, dest, []ir.Value{a})
}

func (b *Builder) AssignAnon(symbol string, a ir.Value) ir.Value {
	return b.Assign(symbol, b.anonName(), a)
}

func (b *Builder) ULeq(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.ULeq, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) ULeqAnon(symbol string, a, c ir.Value) ir.Value {
	return b.ULeq(symbol, b.anonName(), a, c)
}

func (b *Builder) SLeq(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.SLeq, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) SLeqAnon(symbol string, a, c ir.Value) ir.Value {
	return b.SLeq(symbol, b.anonName(), a, c)
}

func (b *Builder) UShr(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.UShr, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) UShrAnon(symbol string, a, c ir.Value) ir.Value {
	return b.UShr(symbol, b.anonName(), a, c)
}

func (b *Builder) UShl(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.UShl, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) UShlAnon(symbol string, a, c ir.Value) ir.Value {
	return b.UShl(symbol, b.anonName(), a, c)
}

func (b *Builder) SShr(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.SShr, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) SShrAnon(symbol string, a, c ir.Value) ir.Value {
	return b.SShr(symbol, b.anonName(), a, c)
}

func (b *Builder) SShl(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.SShl, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) SShlAnon(symbol string, a, c ir.Value) ir.Value {
	return b.SShl(symbol, b.anonName(), a, c)
}

// UExt takes the source value and a constant hint giving the destination
// width, per spec.md §4.3's extension rule.
func (b *Builder) UExt(symbol, dest string, hint, a ir.Value) ir.Value {
	return b.build(ir.UExt, symbol, dest, []ir.Value{hint, a})
}

func (b *Builder) UExtAnon(symbol string, hint, a ir.Value) ir.Value {
	return b.UExt(symbol, b.anonName(), hint, a)
}

func (b *Builder) SExt(symbol, dest string, hint, a ir.Value) ir.Value {
	return b.build(ir.SExt, symbol, dest, []ir.Value{hint, a})
}

func (b *Builder) SExtAnon(symbol string, hint, a ir.Value) ir.Value {
	return b.SExt(symbol, b.anonName(), hint, a)
}

// Slice extracts bits [from, to] (inclusive) of a.
func (b *Builder) Slice(symbol, dest string, a, from, to ir.Value) ir.Value {
	return b.build(ir.Slice, symbol, dest, []ir.Value{a, from, to})
}

func (b *Builder) SliceAnon(symbol string, a, from, to ir.Value) ir.Value {
	return b.Slice(symbol, b.anonName(), a, from, to)
}

// Concat joins lo below hi; the destination width is the sum of both.
func (b *Builder) Concat(symbol, dest string, lo, hi ir.Value) ir.Value {
	return b.build(ir.Concat, symbol, dest, []ir.Value{lo, hi})
}

func (b *Builder) ConcatAnon(symbol string, lo, hi ir.Value) ir.Value {
	return b.Concat(symbol, b.anonName(), lo, hi)
}

func (b *Builder) Add(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.Add, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) AddAnon(symbol string, a, c ir.Value) ir.Value {
	return b.Add(symbol, b.anonName(), a, c)
}

func (b *Builder) Sub(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.Sub, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) SubAnon(symbol string, a, c ir.Value) ir.Value {
	return b.Sub(symbol, b.anonName(), a, c)
}

func (b *Builder) Mul(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.Mul, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) MulAnon(symbol string, a, c ir.Value) ir.Value {
	return b.Mul(symbol, b.anonName(), a, c)
}

func (b *Builder) SDiv(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.SDiv, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) SDivAnon(symbol string, a, c ir.Value) ir.Value {
	return b.SDiv(symbol, b.anonName(), a, c)
}

func (b *Builder) UDiv(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.UDiv, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) UDivAnon(symbol string, a, c ir.Value) ir.Value {
	return b.UDiv(symbol, b.anonName(), a, c)
}

func (b *Builder) SMod(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.SMod, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) SModAnon(symbol string, a, c ir.Value) ir.Value {
	return b.SMod(symbol, b.anonName(), a, c)
}

func (b *Builder) UMod(symbol, dest string, a, c ir.Value) ir.Value {
	return b.build(ir.UMod, symbol, dest, []ir.Value{a, c})
}

func (b *Builder) UModAnon(symbol string, a, c ir.Value) ir.Value {
	return b.UMod(symbol, b.anonName(), a, c)
}

// Call's operand is the target value (direct constant or indirect);
// spec.md leaves its cprop semantics opaque (see DESIGN.md).
func (b *Builder) Call(symbol, dest string, target ir.Value) ir.Value {
	return b.build(ir.Call, symbol, dest, []ir.Value{target})
}

func (b *Builder) CallAnon(symbol string, target ir.Value) ir.Value {
	return b.Call(symbol, b.anonName(), target)
}
