package decoder

import (
	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/ir"
	"github.com/Urethramancer/panopticon/mnemonic"
)

// Jump is a post-mnemonic control-flow jump emitted by a semantic action: a
// guarded transition to a target that may be a resolved constant address
// (the decoder itself cannot resolve blocks — only the procedure driver
// can) or an unresolved IR value.
type Jump struct {
	Guard  block.Guard
	Target ir.Value // a Constant (direct) or any other Value (indirect)
}

// SemanticState is the per-match-attempt state threaded through a rule
// tree's semantic actions, per spec.md §4.4.
type SemanticState struct {
	Seed      uint64
	Arch      Architecture
	Tokens    []uint64
	Captures  map[string]uint64
	Mnemonics []*mnemonic.Mnemonic
	Jumps     []Jump

	// Addr is the running address for the next mnemonic an action pushes;
	// it starts at Seed and is bumped by each pushed mnemonic's byte length.
	Addr uint64

	// Custom is the architecture-specific payload carried opaquely, per
	// spec.md §4.5 ("State type ... carried through the semantic state
	// opaquely").
	Custom any
}

func newState(arch Architecture, seed uint64) *SemanticState {
	return &SemanticState{
		Seed:     seed,
		Arch:     arch,
		Captures: make(map[string]uint64),
		Addr:     seed,
	}
}

// clone deep-copies the mutable parts of the state so a failed match leaves
// the caller's original state untouched, per the try_match contract.
func (s *SemanticState) clone() *SemanticState {
	c := &SemanticState{
		Seed:      s.Seed,
		Arch:      s.Arch,
		Tokens:    append([]uint64(nil), s.Tokens...),
		Captures:  make(map[string]uint64, len(s.Captures)),
		Mnemonics: append([]*mnemonic.Mnemonic(nil), s.Mnemonics...),
		Jumps:     append([]Jump(nil), s.Jumps...),
		Addr:      s.Addr,
		Custom:    s.Custom,
	}
	for k, v := range s.Captures {
		c.Captures[k] = v
	}
	return c
}

// Capture returns the accumulated value for a named capture group and
// whether it has been set at all during this match.
func (s *SemanticState) Capture(name string) (uint64, bool) {
	v, ok := s.Captures[name]
	return v, ok
}

// appendCapture implements "repeated names append captured bits MSB-first":
// the new bits become the low-order bits of the accumulated value.
func (s *SemanticState) appendCapture(name string, value uint64, bitcount uint) {
	old := s.Captures[name]
	s.Captures[name] = (old << bitcount) | value
}

// PushMnemonic appends a mnemonic at the state's current running address,
// bumping Addr by its byte length. It is the only way a semantic action
// should extend Mnemonics, since it keeps Addr consistent.
func (s *SemanticState) PushMnemonic(m *mnemonic.Mnemonic) {
	s.Mnemonics = append(s.Mnemonics, m)
	if m.Area.End > s.Addr {
		s.Addr = m.Area.End
	}
}

// PushJump records a post-mnemonic control-flow jump.
func (s *SemanticState) PushJump(guard block.Guard, target ir.Value) {
	s.Jumps = append(s.Jumps, Jump{Guard: guard, Target: target})
}
