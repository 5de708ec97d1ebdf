package procedure

import (
	"testing"

	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/decoder"
	"github.com/Urethramancer/panopticon/ir"
	"github.com/Urethramancer/panopticon/mnemonic"
)

// toyArch is the three-instruction 16-bit-token architecture from spec.md
// §8's worked examples, reproduced minimally for this package's own tests;
// arch/toy provides the full version other packages share.
type toyArch struct{ temp int }

func (*toyArch) TokenWidth() uint    { return 16 }
func (*toyArch) Valid(string) bool   { return false }
func (*toyArch) Width(string) uint   { return 0 }
func (a *toyArch) FreshTemp() string { a.temp++; return "t" }

func toyDisassembler() *decoder.Disassembler {
	arch := &toyArch{}
	d := decoder.New(arch)

	mov, _ := d.Pattern("0000000000000001") // 0x0001
	d.AddRule(decoder.Concat(mov, decoder.Do(func(s *decoder.SemanticState) error {
		area := mnemonic.NewArea(s.Addr, s.Addr+2)
		s.PushMnemonic(mnemonic.New(area, "mov", nil, nil))
		s.PushJump(block.True(), ir.Const(uint32(area.End), 32))
		return nil
	})))

	jmp, _ := d.Pattern("1100000000000011") // 0xC003
	d.AddRule(decoder.Concat(jmp, decoder.Do(func(s *decoder.SemanticState) error {
		area := mnemonic.NewArea(s.Addr, s.Addr+2)
		s.PushMnemonic(mnemonic.New(area, "jmp", nil, nil))
		target := s.Addr + 3*2
		s.PushJump(block.True(), ir.Const(uint32(target), 32))
		return nil
	})))

	ret, _ := d.Pattern("1001010100001000") // 0x9508
	d.AddRule(decoder.Concat(ret, decoder.Do(func(s *decoder.SemanticState) error {
		area := mnemonic.NewArea(s.Addr, s.Addr+2)
		s.PushMnemonic(mnemonic.New(area, "ret", nil, nil))
		return nil
	})))

	d.SetDefault(func(s *decoder.SemanticState) error {
		area := mnemonic.NewArea(s.Addr, s.Addr+2)
		s.PushMnemonic(mnemonic.New(area, "unk", nil, nil))
		return nil
	})
	return d
}

func TestScenarioOneBlockMovRet(t *testing.T) {
	d := toyDisassembler()
	code := Code{Base: 0, TokenBytes: 2, Tokens: []uint64{0x0001, 0x9508}}

	p := New("p0", 0)
	p.Run(d, code)

	if p.Entry == block.InvalidID {
		t.Fatal("expected an entry block")
	}
	entry := p.Arena.Get(p.Entry)
	if entry.Area != mnemonic.NewArea(0, 4) {
		t.Fatalf("entry area = %v, want [0,4)", entry.Area)
	}
	if len(entry.Mnemonics) != 2 {
		t.Fatalf("expected 2 mnemonics, got %d", len(entry.Mnemonics))
	}
	if len(entry.Out) != 0 {
		t.Fatalf("ret should leave no outgoing edge, got %d", len(entry.Out))
	}
	if len(p.Arena.IDs()) != 1 {
		t.Fatalf("expected a single block, got %d", len(p.Arena.IDs()))
	}
}

func TestScenarioTwoBlocksViaJump(t *testing.T) {
	d := toyDisassembler()
	code := Code{
		Base:       0,
		TokenBytes: 2,
		Tokens:     []uint64{0x0001, 0xC003, 0x0000, 0x0000, 0x0001, 0x9508},
	}

	p := New("p0", 0)
	p.Run(d, code)

	ids := p.Arena.IDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(ids))
	}

	b0 := p.Arena.Get(p.FindBlock(0))
	if b0.Area != mnemonic.NewArea(0, 4) {
		t.Fatalf("b0 area = %v, want [0,4)", b0.Area)
	}
	if len(b0.Mnemonics) != 2 || b0.Mnemonics[0].Opcode != "mov" || b0.Mnemonics[1].Opcode != "jmp" {
		t.Fatalf("b0 mnemonics = %+v", b0.Mnemonics)
	}
	if len(b0.Out) != 1 || !b0.Out[0].Guard.IsTrue() {
		t.Fatalf("b0 out edges = %+v", b0.Out)
	}

	b1ID := b0.Out[0].Target.Block()
	b1 := p.Arena.Get(b1ID)
	if b1.Area != mnemonic.NewArea(8, 12) {
		t.Fatalf("b1 area = %v, want [8,12)", b1.Area)
	}
	if len(b1.Mnemonics) != 2 || b1.Mnemonics[0].Opcode != "mov" || b1.Mnemonics[1].Opcode != "ret" {
		t.Fatalf("b1 mnemonics = %+v", b1.Mnemonics)
	}
	if len(b1.In) != 1 || b1.In[0].From != p.FindBlock(0) {
		t.Fatalf("b1 in edges = %+v", b1.In)
	}
	if id := p.FindBlock(4); id != block.InvalidID {
		t.Fatalf("expected no block covering bytes 4-8, got %d", id)
	}
}
