package lattice

import "github.com/Urethramancer/panopticon/ir"

// cpropKind tags the three-point ⊥ < Const(k) < ⊤ lattice of spec.md §3.
type cpropKind uint8

const (
	cpropBottom cpropKind = iota
	cpropConst
	cpropTop
)

// CpropValue is one name's constant-propagation lattice element.
type CpropValue struct {
	kind  cpropKind
	val   uint32
	width uint
}

// Bot is the ⊥ element.
func Bot() CpropValue { return CpropValue{kind: cpropBottom} }

// Top is the ⊤ element.
func Top() CpropValue { return CpropValue{kind: cpropTop} }

// ConstVal builds a Const(k) element of the given width.
func ConstVal(k uint32, width uint) CpropValue {
	return CpropValue{kind: cpropConst, val: mask(k, width), width: width}
}

// IsConst reports whether v is a concrete Const(k), returning k.
func (v CpropValue) IsConst() (uint32, bool) {
	return v.val, v.kind == cpropConst
}

// IsTop reports whether v is ⊤.
func (v CpropValue) IsTop() bool { return v.kind == cpropTop }

// IsBottom reports whether v is ⊥.
func (v CpropValue) IsBottom() bool { return v.kind == cpropBottom }

func joinValues(a, b CpropValue) CpropValue {
	if a.kind == cpropBottom {
		return b
	}
	if b.kind == cpropBottom {
		return a
	}
	if a.kind == cpropTop || b.kind == cpropTop {
		return Top()
	}
	if a.val == b.val && a.width == b.width {
		return a
	}
	return Top()
}

// CpropState maps a name to its cprop element; a missing key is ⊥.
type CpropState map[ir.Name]CpropValue

// Cprop implements absinterp.Lattice[CpropState] per spec.md §4.10's cprop
// transfer and §3's exhaustive per-opcode table.
type Cprop struct{}

func (Cprop) Bottom() CpropState { return CpropState{} }

func (Cprop) Join(a, b CpropState) CpropState {
	out := make(CpropState, len(a)+len(b))
	for n, v := range a {
		out[n] = v
	}
	for n, v := range b {
		if cur, ok := out[n]; ok {
			out[n] = joinValues(cur, v)
		} else {
			out[n] = v
		}
	}
	return out
}

func (Cprop) Equal(a, b CpropState) bool {
	if len(a) != len(b) {
		return false
	}
	for n, v := range a {
		ov, ok := b[n]
		if !ok || v != ov {
			return false
		}
	}
	return true
}

func (Cprop) Transfer(state CpropState, inst *ir.Instruction) CpropState {
	dest, ok := inst.Dest.Name()
	if !ok {
		return state
	}
	if cur, ok := state[dest]; ok && cur.kind == cpropTop {
		return state
	}

	result := evalOpcode(state, inst)

	out := make(CpropState, len(state)+1)
	for n, v := range state {
		out[n] = v
	}
	out[dest] = result
	return out
}

// operandValue resolves a single operand to its cprop element: a Constant
// literal gives Const(k) directly, a Variable resolves through state, and
// anything else (Undefined) is ⊥.
func operandValue(state CpropState, v ir.Value) CpropValue {
	if k, ok := v.ConstValue(); ok {
		return ConstVal(k, v.Width())
	}
	if n, ok := v.Name(); ok {
		if cv, ok := state[n]; ok {
			return cv
		}
		return Bot()
	}
	return Bot()
}

func mask(v uint32, width uint) uint32 {
	if width == 0 || width >= 32 {
		return v
	}
	return v & ((uint32(1) << width) - 1)
}

func signExtend(v uint32, width uint) int64 {
	v = mask(v, width)
	if width == 0 || width >= 64 {
		return int64(v)
	}
	signBit := uint32(1) << (width - 1)
	if v&signBit != 0 {
		return int64(v) - (int64(1) << width)
	}
	return int64(v)
}

// evalOpcode implements spec.md §4.10's cprop transfer: if any operand
// resolves to ⊤ or ⊥, that dominates (⊤ wins over ⊥); Phi treats equal
// constants across operands specially; every other opcode with all-Const
// operands computes the concrete result per spec.md §3's opcode table.
func evalOpcode(state CpropState, inst *ir.Instruction) CpropValue {
	if inst.Op == ir.Call {
		return Bot()
	}

	operands := make([]CpropValue, len(inst.Operands))
	for i, o := range inst.Operands {
		operands[i] = operandValue(state, o)
	}

	if inst.Op == ir.Phi {
		if len(operands) == 0 {
			return Bot()
		}
		acc := operands[0]
		for _, o := range operands[1:] {
			acc = joinValues(acc, o)
		}
		if k, ok := acc.IsConst(); ok {
			return ConstVal(k, inst.Dest.Width())
		}
		if acc.IsBottom() {
			return Bot()
		}
		return Top()
	}

	sawTop, sawBottom := false, false
	for _, o := range operands {
		switch o.kind {
		case cpropTop:
			sawTop = true
		case cpropBottom:
			sawBottom = true
		}
	}
	if sawTop {
		return Top()
	}
	if sawBottom {
		return Bot()
	}

	w := inst.Dest.Width()

	switch inst.Op {
	case ir.Assign:
		k, _ := operands[0].IsConst()
		return ConstVal(k, w)
	case ir.Not:
		k, _ := operands[0].IsConst()
		return ConstVal(^k, w)
	case ir.And:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		return ConstVal(a&b, w)
	case ir.Or:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		return ConstVal(a|b, w)
	case ir.Xor:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		return ConstVal(a^b, w)
	case ir.ULeq:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		return boolConst(a <= b, w)
	case ir.SLeq:
		a := signExtend(mustConst(operands[0]), operands[0].width)
		b := signExtend(mustConst(operands[1]), operands[1].width)
		return boolConst(a <= b, w)
	case ir.UShr:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		return ConstVal(a>>b, w)
	case ir.UShl:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		return ConstVal(a<<b, w)
	case ir.SShr:
		a := signExtend(mustConst(operands[0]), operands[0].width)
		b, _ := operands[1].IsConst()
		return ConstVal(uint32(a>>b), w)
	case ir.SShl:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		return ConstVal(a<<b, w)
	case ir.UExt:
		v, _ := operands[1].IsConst()
		return ConstVal(v, w)
	case ir.SExt:
		v := signExtend(mustConst(operands[1]), operands[1].width)
		return ConstVal(uint32(v), w)
	case ir.Slice:
		v, _ := operands[0].IsConst()
		from, _ := operands[1].IsConst()
		to, _ := operands[2].IsConst()
		width := to - from + 1
		return ConstVal((v>>from)&((uint32(1)<<width)-1), w)
	case ir.Concat:
		lo, _ := operands[0].IsConst()
		hi, _ := operands[1].IsConst()
		return ConstVal(lo|(hi<<operands[0].width), w)
	case ir.Add:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		return ConstVal(a+b, w)
	case ir.Sub:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		return ConstVal(a-b, w)
	case ir.Mul:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		return ConstVal(a*b, w)
	case ir.UDiv:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		if b == 0 {
			return Top()
		}
		return ConstVal(a/b, w)
	case ir.UMod:
		a, _ := operands[0].IsConst()
		b, _ := operands[1].IsConst()
		if b == 0 {
			return Top()
		}
		return ConstVal(a%b, w)
	case ir.SDiv:
		a := signExtend(mustConst(operands[0]), operands[0].width)
		b := signExtend(mustConst(operands[1]), operands[1].width)
		if b == 0 {
			return Top()
		}
		return ConstVal(uint32(a/b), w)
	case ir.SMod:
		a := signExtend(mustConst(operands[0]), operands[0].width)
		b := signExtend(mustConst(operands[1]), operands[1].width)
		if b == 0 {
			return Top()
		}
		return ConstVal(uint32(a%b), w)
	default:
		return Top()
	}
}

func mustConst(v CpropValue) uint32 {
	k, _ := v.IsConst()
	return k
}

func boolConst(b bool, width uint) CpropValue {
	if b {
		return ConstVal(1, width)
	}
	return ConstVal(0, width)
}
