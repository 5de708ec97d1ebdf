package toy

import (
	"testing"

	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/mnemonic"
	"github.com/Urethramancer/panopticon/procedure"
)

func TestScenarioOneBlockMovRet(t *testing.T) {
	dis := Build(NewArch())
	code := procedure.Code{Base: 0, TokenBytes: 2, Tokens: []uint64{MovToken, RetToken}}

	p := procedure.New("p0", 0)
	p.Run(dis, code)

	if len(p.Arena.IDs()) != 1 {
		t.Fatalf("expected 1 block, got %d", len(p.Arena.IDs()))
	}
	entry := p.Arena.Get(p.Entry)
	if entry.Area != mnemonic.NewArea(0, 4) {
		t.Fatalf("entry area = %v, want [0,4)", entry.Area)
	}
	if len(entry.Out) != 0 {
		t.Fatalf("ret should leave no outgoing edge, got %d", len(entry.Out))
	}
	if got, want := entry.Mnemonics[0].Text(), "mov r0,0x1:32"; got != want {
		t.Fatalf("mov text = %q, want %q", got, want)
	}
}

func TestScenarioTwoBlocksViaRelativeJump(t *testing.T) {
	dis := Build(NewArch())
	code := procedure.Code{
		Base:       0,
		TokenBytes: 2,
		Tokens:     []uint64{MovToken, JmpToken(3), 0, 0, MovToken, RetToken},
	}

	p := procedure.New("p0", 0)
	p.Run(dis, code)

	ids := p.Arena.IDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(ids))
	}

	b0 := p.Arena.Get(p.FindBlock(0))
	if b0.Area != mnemonic.NewArea(0, 4) {
		t.Fatalf("b0 area = %v, want [0,4)", b0.Area)
	}
	if len(b0.Out) != 1 {
		t.Fatalf("b0 should have exactly one outgoing edge, got %d", len(b0.Out))
	}

	b1 := p.Arena.Get(b0.Out[0].Target.Block())
	if b1.Area != mnemonic.NewArea(8, 12) {
		t.Fatalf("b1 area = %v, want [8,12)", b1.Area)
	}
	if id := p.FindBlock(4); id != block.InvalidID {
		t.Fatalf("expected no block covering bytes 4-8, got %d", id)
	}
}

func TestUnknownTokensFallThroughAsOneBlock(t *testing.T) {
	dis := Build(NewArch())
	code := procedure.Code{
		Base:       0,
		TokenBytes: 2,
		Tokens:     []uint64{0, 0, RetToken},
	}

	p := procedure.New("p0", 0)
	p.Run(dis, code)

	if len(p.Arena.IDs()) != 1 {
		t.Fatalf("expected 1 block, got %d", len(p.Arena.IDs()))
	}
	entry := p.Arena.Get(p.Entry)
	if entry.Area != mnemonic.NewArea(0, 6) {
		t.Fatalf("entry area = %v, want [0,6)", entry.Area)
	}
	if len(entry.Mnemonics) != 3 || entry.Mnemonics[0].Opcode != "unk" || entry.Mnemonics[1].Opcode != "unk" || entry.Mnemonics[2].Opcode != "ret" {
		t.Fatalf("mnemonics = %+v, want unk,unk,ret", entry.Mnemonics)
	}
}

func TestJmpTokenEncodesOffsetInLowTwelveBits(t *testing.T) {
	if got := JmpToken(3); got != 0xC003 {
		t.Fatalf("JmpToken(3) = %#x, want 0xc003", got)
	}
	if got := JmpToken(0xFFF); got != 0xCFFF {
		t.Fatalf("JmpToken(0xfff) = %#x, want 0xcfff", got)
	}
}
