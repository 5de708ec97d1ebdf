package ssa

import (
	"testing"

	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/dflow"
	"github.com/Urethramancer/panopticon/ir"
	"github.com/Urethramancer/panopticon/mnemonic"
)

func blockWith(a *block.Arena, begin, end uint64, insts ...*ir.Instruction) block.ID {
	area := mnemonic.NewArea(begin, end)
	m := mnemonic.New(area, "x", nil, insts)
	return a.New(area, []*mnemonic.Mnemonic{m})
}

func assign(dest ir.Value, src ir.Value) *ir.Instruction {
	inst, err := ir.NewInstruction(ir.Assign, "assign", dest, []ir.Value{src})
	if err != nil {
		panic(err)
	}
	return inst
}

// diamondWithVar builds entry E (defines x) branching to B and C (each
// redefine x), joining at D (uses x), per the classic φ-placement example.
func diamondWithVar() (a *block.Arena, E, B, C, D block.ID) {
	a = block.NewArena()
	x := ir.NewName("x")

	E = blockWith(a, 0, 2, assign(ir.Var(x, 32), ir.Const(0, 32)))
	B = blockWith(a, 2, 4, assign(ir.Var(x, 32), ir.Const(1, 32)))
	C = blockWith(a, 4, 6, assign(ir.Var(x, 32), ir.Const(2, 32)))
	D = blockWith(a, 6, 8, assign(ir.Var(ir.NewName("y"), 32), ir.Var(x, 32)))

	a.UnconditionalJump(E, B)
	a.UnconditionalJump(E, C)
	a.UnconditionalJump(B, D)
	a.UnconditionalJump(C, D)
	return
}

func buildAndConstruct(t *testing.T) (a *block.Arena, E, B, C, D block.ID) {
	t.Helper()
	a, E, B, C, D = diamondWithVar()
	dom := dflow.Compute(a, E)
	live := dflow.ComputeLiveness(a, dom.RPO, dom.RPO)
	Construct(a, E, dom, live)
	return
}

func TestConstructPlacesPhiAtJoin(t *testing.T) {
	a, _, _, _, D := buildAndConstruct(t)

	db := a.Get(D)
	if len(db.Mnemonics[0].Instructions) == 0 {
		t.Fatal("expected at least the phi instruction in D")
	}
	phi := db.Mnemonics[0].Instructions[0]
	if phi.Op != ir.Phi {
		t.Fatalf("expected first instruction in D to be a phi, got %s", phi.Op)
	}
	if len(phi.Operands) != 2 {
		t.Fatalf("phi should have 2 operands (one per predecessor), got %d", len(phi.Operands))
	}
	destName, _ := phi.Dest.Name()
	if destName.Subscript == ir.Unsubscripted {
		t.Fatal("phi destination should have been assigned a fresh subscript")
	}

	use := db.Mnemonics[0].Instructions[len(db.Mnemonics[0].Instructions)-1]
	opName, ok := use.Operands[0].Name()
	if !ok {
		t.Fatal("D's use of x should still be a variable")
	}
	if opName.Base != "x" || opName.Subscript != destName.Subscript {
		t.Fatalf("D's use of x should be renamed to the phi's result, got %s want x_%d", opName, destName.Subscript)
	}
}

func TestConstructGivesEachDefinitionADistinctSubscript(t *testing.T) {
	a, _, _, _, _ := buildAndConstruct(t)

	bInst := a.Get(a.FindByAddress(2)).IR()[0]
	cInst := a.Get(a.FindByAddress(4)).IR()[0]
	bn, _ := bInst.Dest.Name()
	cn, _ := cInst.Dest.Name()
	if bn.Subscript == cn.Subscript {
		t.Fatalf("B and C should assign x distinct subscripts, both got %d", bn.Subscript)
	}
}

func TestConstructPhiOperandsMatchPredecessorDefinitions(t *testing.T) {
	a, _, _, _, D := buildAndConstruct(t)

	bInst := a.Get(a.FindByAddress(2)).IR()[0]
	cInst := a.Get(a.FindByAddress(4)).IR()[0]
	bn, _ := bInst.Dest.Name()
	cn, _ := cInst.Dest.Name()

	db := a.Get(D)
	phi := db.Mnemonics[0].Instructions[0]

	bPos, cPos := -1, -1
	for i, e := range db.In {
		if e.From == a.FindByAddress(2) {
			bPos = i
		}
		if e.From == a.FindByAddress(4) {
			cPos = i
		}
	}
	if bPos < 0 || cPos < 0 {
		t.Fatalf("expected both predecessors represented in D's incoming edges")
	}

	gotB, _ := phi.Operands[bPos].Name()
	gotC, _ := phi.Operands[cPos].Name()
	if gotB.Subscript != bn.Subscript {
		t.Fatalf("phi operand for B's edge = %s, want subscript %d", gotB, bn.Subscript)
	}
	if gotC.Subscript != cn.Subscript {
		t.Fatalf("phi operand for C's edge = %s, want subscript %d", gotC, cn.Subscript)
	}
}
