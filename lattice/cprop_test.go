package lattice

import (
	"testing"

	"github.com/Urethramancer/panopticon/ir"
)

func mustInst(t *testing.T, op ir.Opcode, dest ir.Value, operands ...ir.Value) *ir.Instruction {
	t.Helper()
	inst, err := ir.NewInstruction(op, op.String(), dest, operands)
	if err != nil {
		t.Fatalf("build %s instruction: %v", op, err)
	}
	return inst
}

func TestCpropSliceExtractsBits(t *testing.T) {
	x := ir.NewName("x")
	v := ir.NewName("v")
	state := CpropState{x: ConstVal(0xF0, 8)}

	inst := mustInst(t, ir.Slice, ir.Var(v, 4), ir.Var(x, 8), ir.Const(4, 8), ir.Const(7, 8))
	out := (Cprop{}).Transfer(state, inst)

	got, ok := out[v].IsConst()
	if !ok || got != 0xF {
		t.Fatalf("slice(0xF0, 4, 7) = %v, want 0xF", out[v])
	}
}

func TestCpropConcatSumsWidths(t *testing.T) {
	lo := ir.NewName("lo")
	hi := ir.NewName("hi")
	r := ir.NewName("r")
	state := CpropState{lo: ConstVal(0x0F, 4), hi: ConstVal(0x3, 2)}

	inst := mustInst(t, ir.Concat, ir.Var(r, 6), ir.Var(lo, 4), ir.Var(hi, 2))
	out := (Cprop{}).Transfer(state, inst)

	got, ok := out[r].IsConst()
	if !ok || got != 0x3F {
		t.Fatalf("concat(0xF:4, 0x3:2) = %v, want 0x3F", out[r])
	}
}

func TestCpropPhiEqualOperandsYieldsThatConstant(t *testing.T) {
	a := ir.NewName("a")
	b := ir.NewName("b")
	r := ir.NewName("r")
	state := CpropState{a: ConstVal(5, 32), b: ConstVal(5, 32)}

	inst := mustInst(t, ir.Phi, ir.Var(r, 32), ir.Var(a, 32), ir.Var(b, 32))
	out := (Cprop{}).Transfer(state, inst)

	got, ok := out[r].IsConst()
	if !ok || got != 5 {
		t.Fatalf("phi(5,5) = %v, want Const(5)", out[r])
	}
}

func TestCpropPhiUnequalOperandsYieldsTop(t *testing.T) {
	a := ir.NewName("a")
	b := ir.NewName("b")
	r := ir.NewName("r")
	state := CpropState{a: ConstVal(5, 32), b: ConstVal(6, 32)}

	inst := mustInst(t, ir.Phi, ir.Var(r, 32), ir.Var(a, 32), ir.Var(b, 32))
	out := (Cprop{}).Transfer(state, inst)

	if !out[r].IsTop() {
		t.Fatalf("phi(5,6) = %v, want Top", out[r])
	}
}

func TestCpropDivisionByZeroIsTop(t *testing.T) {
	a := ir.NewName("a")
	b := ir.NewName("b")
	r := ir.NewName("r")
	state := CpropState{a: ConstVal(10, 32), b: ConstVal(0, 32)}

	inst := mustInst(t, ir.UDiv, ir.Var(r, 32), ir.Var(a, 32), ir.Var(b, 32))
	out := (Cprop{}).Transfer(state, inst)

	if !out[r].IsTop() {
		t.Fatalf("10/0 = %v, want Top", out[r])
	}
}

func TestCpropCallStaysBottomUnlessAssigned(t *testing.T) {
	dst := ir.NewName("ret")
	state := CpropState{}

	inst := mustInst(t, ir.Call, ir.Var(dst, 32), ir.Const(0x1000, 32))
	out := (Cprop{}).Transfer(state, inst)

	if !out[dst].IsBottom() {
		t.Fatalf("call destination = %v, want Bottom (opaque)", out[dst])
	}
}

func TestCpropOnceTopStaysTop(t *testing.T) {
	x := ir.NewName("x")
	r := ir.NewName("r")
	state := CpropState{x: ConstVal(1, 32), r: Top()}

	inst := mustInst(t, ir.Assign, ir.Var(r, 32), ir.Var(x, 32))
	out := (Cprop{}).Transfer(state, inst)

	if !out[r].IsTop() {
		t.Fatal("an already-Top destination must never be narrowed back down")
	}
}

func TestCpropJoinOrdering(t *testing.T) {
	bot, top := Bot(), Top()
	c5 := ConstVal(5, 32)
	c6 := ConstVal(6, 32)

	if j := joinValues(bot, c5); j != c5 {
		t.Fatalf("bottom join Const(5) = %v, want Const(5)", j)
	}
	if j := joinValues(c5, top); !j.IsTop() {
		t.Fatalf("Const(5) join top = %v, want top", j)
	}
	if j := joinValues(c5, c5); j != c5 {
		t.Fatalf("Const(5) join Const(5) = %v, want Const(5)", j)
	}
	if j := joinValues(c5, c6); !j.IsTop() {
		t.Fatalf("Const(5) join Const(6) = %v, want top", j)
	}
}
