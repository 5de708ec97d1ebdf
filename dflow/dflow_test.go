package dflow

import (
	"testing"

	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/ir"
	"github.com/Urethramancer/panopticon/mnemonic"
)

func blk(a *block.Arena, begin, end uint64) block.ID {
	area := mnemonic.NewArea(begin, end)
	m := mnemonic.New(area, "nop", nil, nil)
	return a.New(area, []*mnemonic.Mnemonic{m})
}

// diamond builds A -> {B, C} -> D.
func diamond() (*block.Arena, block.ID, block.ID, block.ID, block.ID) {
	a := block.NewArena()
	A := blk(a, 0, 2)
	B := blk(a, 2, 4)
	C := blk(a, 4, 6)
	D := blk(a, 6, 8)
	a.UnconditionalJump(A, B)
	a.UnconditionalJump(A, C)
	a.UnconditionalJump(B, D)
	a.UnconditionalJump(C, D)
	return a, A, B, C, D
}

func TestDominanceDiamond(t *testing.T) {
	a, A, B, C, D := diamond()
	dom := Compute(a, A)

	if dom.Idom[A] != block.InvalidID {
		t.Fatalf("entry idom should be cleared, got %v", dom.Idom[A])
	}
	if dom.Idom[B] != A || dom.Idom[C] != A || dom.Idom[D] != A {
		t.Fatalf("expected A to immediately dominate B, C and D: %+v", dom.Idom)
	}
	if !dom.Dominates(A, D) {
		t.Fatal("A should dominate D")
	}
	if dom.Dominates(B, D) {
		t.Fatal("B should not dominate D (C is also a predecessor)")
	}

	if len(dom.Frontier[B]) != 1 || dom.Frontier[B][0] != D {
		t.Fatalf("frontier(B) = %v, want [D]", dom.Frontier[B])
	}
	if len(dom.Frontier[C]) != 1 || dom.Frontier[C][0] != D {
		t.Fatalf("frontier(C) = %v, want [D]", dom.Frontier[C])
	}
	if len(dom.Frontier[A]) != 0 {
		t.Fatalf("frontier(A) should be empty, got %v", dom.Frontier[A])
	}
}

func TestDominanceTwiceIsIdempotent(t *testing.T) {
	a, A, _, _, _ := diamond()
	d1 := Compute(a, A)
	d2 := Compute(a, A)
	for id, idom := range d1.Idom {
		if d2.Idom[id] != idom {
			t.Fatalf("idom differs across runs for %v: %v vs %v", id, idom, d2.Idom[id])
		}
	}
}

func TestLivenessAcrossFallthrough(t *testing.T) {
	a := block.NewArena()

	x := ir.Var(ir.NewName("x"), 32)
	defArea := mnemonic.NewArea(0, 2)
	defInst, err := ir.NewInstruction(ir.Assign, "assign", x, []ir.Value{ir.Const(1, 32)})
	if err != nil {
		t.Fatalf("build def instruction: %v", err)
	}
	defM := mnemonic.New(defArea, "assign", nil, []*ir.Instruction{defInst})
	defBlock := a.New(defArea, []*mnemonic.Mnemonic{defM})

	y := ir.Var(ir.NewName("y"), 32)
	useArea := mnemonic.NewArea(2, 4)
	useInst, err := ir.NewInstruction(ir.Assign, "assign", y, []ir.Value{x})
	if err != nil {
		t.Fatalf("build use instruction: %v", err)
	}
	useM := mnemonic.New(useArea, "assign", nil, []*ir.Instruction{useInst})
	useBlock := a.New(useArea, []*mnemonic.Mnemonic{useM})

	a.UnconditionalJump(defBlock, useBlock)

	rpo := ReversePostorder(a, defBlock)
	lv := ComputeLiveness(a, []block.ID{defBlock, useBlock}, rpo)

	xBit, ok := lv.index[ir.NewName("x")]
	if !ok {
		t.Fatal("x should be in the name universe")
	}
	if !lv.LiveOut[defBlock].Test(xBit) {
		t.Fatal("x should be live-out of the defining block (live-in to its single successor)")
	}
	if lv.LiveOut[useBlock].Test(xBit) {
		t.Fatal("x should not be live past its only use")
	}
}
