// Package toy implements the three-instruction, 16-bit-token test
// architecture spec.md §8's "End-to-end scenarios" describe: it exists
// to make those scenarios (and the render package's end-to-end tests)
// expressible against a concrete decoder.Architecture, and is also the
// built-in architecture of cmd/panoptic; it is not a product architecture
// in its own right.
package toy

import (
	"fmt"

	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/codegen"
	"github.com/Urethramancer/panopticon/decoder"
	"github.com/Urethramancer/panopticon/ir"
	"github.com/Urethramancer/panopticon/mnemonic"
)

// Token encodings from spec.md §8: mov r0, 1 (fall-through), a relative
// jmp measured in tokens, and ret.
const (
	MovToken = 0x0001
	RetToken = 0x9508
)

// JmpToken encodes a relative jump of offset tokens (0-4095) from the jmp
// instruction's own address, matching spec.md §8's 0xC003 = "jmp +3". The
// return type is uint64 so callers can drop it straight into a
// procedure.Code.Tokens literal alongside MovToken/RetToken.
func JmpToken(offset uint64) uint64 {
	return 0xC000 | (offset & 0x0FFF)
}

// Arch is the one-register (r0, 32-bit) architecture behind the three
// fixed tokens above.
type Arch struct {
	temp int
}

// NewArch returns a fresh Arch with its temporary counter reset.
func NewArch() *Arch { return &Arch{} }

func (a *Arch) TokenWidth() uint { return 16 }

func (a *Arch) Valid(name string) bool { return name == "r0" }

func (a *Arch) Width(name string) uint {
	if name == "r0" {
		return 32
	}
	return 0
}

func (a *Arch) FreshTemp() string {
	a.temp++
	return fmt.Sprintf("t%d", a.temp)
}

// Build returns a Disassembler wired with exactly the three rules spec.md
// §8 names, in the order mov, jmp, ret, plus a default "unk" action that
// consumes one token.
func Build(a *Arch) *decoder.Disassembler {
	dis := decoder.New(a)

	movPat, err := dis.Pattern("0000000000000001")
	if err != nil {
		panic(err)
	}
	dis.AddRule(decoder.Concat(movPat, decoder.Do(movAction(a))))

	jmpPat, err := dis.Pattern("1100o@............")
	if err != nil {
		panic(err)
	}
	dis.AddRule(decoder.Concat(jmpPat, decoder.Do(jmpAction(a))))

	retPat, err := dis.Pattern("1001010100001000")
	if err != nil {
		panic(err)
	}
	dis.AddRule(decoder.Concat(retPat, decoder.Do(retAction)))

	dis.SetDefault(unkAction)
	return dis
}

// movAction lowers "mov r0, 1" to a single Assign instruction and pushes a
// fall-through jump to the next address: the disassembly loop only ever
// continues decoding an address reached through a pushed Jump (spec.md
// §4.6), so even an unconditional fall-through must be recorded as one.
// The procedure driver's extension algorithm still recognizes the
// adjacency and appends the next mnemonic in place rather than creating a
// new block.
func movAction(a *Arch) decoder.ActionFunc {
	return func(s *decoder.SemanticState) error {
		begin := s.Addr
		b := codegen.New(a)
		one := ir.Const(1, 32)
		b.Assign("mov", "r0", one)
		if b.Err() != nil {
			return b.Err()
		}
		area := mnemonic.NewArea(begin, begin+2)
		operands := []ir.Value{b.Ref("r0"), one}
		s.PushMnemonic(mnemonic.New(area, "mov", operands, b.Instructions()))
		s.PushJump(block.True(), ir.Const(uint32(area.End), 32))
		return nil
	}
}

// jmpAction lowers a relative jump: the target is a Constant address, so
// the procedure driver treats it as direct (spec.md §4.6's "Run" loop
// queues a constant jump target as a continuation rather than recording
// an unresolved edge).
func jmpAction(a *Arch) decoder.ActionFunc {
	return func(s *decoder.SemanticState) error {
		begin := s.Addr
		offset, _ := s.Capture("o")
		target := begin + offset*2

		area := mnemonic.NewArea(begin, begin+2)
		targetVal := ir.Const(uint32(target), 32)
		s.PushMnemonic(mnemonic.New(area, "jmp", []ir.Value{targetVal}, nil))
		s.PushJump(block.True(), targetVal)
		return nil
	}
}

// retAction lowers "ret": no IR, no successor — per spec.md §8 scenario 1,
// the block it terminates gets zero outgoing edges.
func retAction(s *decoder.SemanticState) error {
	area := mnemonic.NewArea(s.Addr, s.Addr+2)
	s.PushMnemonic(mnemonic.New(area, "ret", nil, nil))
	return nil
}

// unkAction is the default fallback: it consumes exactly one token (the
// matcher has already done so by the time this runs), emits a single "unk"
// mnemonic with no IR, and falls through like mov — an unrecognized token
// does not by itself terminate a block.
func unkAction(s *decoder.SemanticState) error {
	area := mnemonic.NewArea(s.Addr, s.Addr+2)
	s.PushMnemonic(mnemonic.New(area, "unk", nil, nil))
	s.PushJump(block.True(), ir.Const(uint32(area.End), 32))
	return nil
}
