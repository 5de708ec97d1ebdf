package mnemonic

import (
	"strings"

	"github.com/Urethramancer/panopticon/ir"
)

// Mnemonic is one decoded machine instruction: its byte range, the opcode
// text and printed operands for display, and the ordered IR instructions
// that implement its semantics. The instruction list is never reordered
// after construction.
type Mnemonic struct {
	Area         Area
	Opcode       string
	Operands     []ir.Value
	Instructions []*ir.Instruction
}

// New builds a Mnemonic. The caller (the decoder's semantic actions) owns
// the instruction slice and must not mutate it afterward.
func New(area Area, opcode string, operands []ir.Value, instructions []*ir.Instruction) *Mnemonic {
	return &Mnemonic{Area: area, Opcode: opcode, Operands: operands, Instructions: instructions}
}

// Text renders "opcode operand,operand" the way a disassembly listing would.
func (m *Mnemonic) Text() string {
	if len(m.Operands) == 0 {
		return m.Opcode
	}
	parts := make([]string, len(m.Operands))
	for i, o := range m.Operands {
		parts[i] = o.String()
	}
	return m.Opcode + " " + strings.Join(parts, ",")
}
