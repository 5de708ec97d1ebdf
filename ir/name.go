// Package ir defines the intermediate-language value model: names, the
// constant/variable/undefined value sum type, and the opcode/instruction
// record that the code generator assembles and the dataflow passes consume.
package ir

import "fmt"

// Unsubscripted marks a Name that has not yet been through SSA renaming.
const Unsubscripted = -1

// Name is a variable's base identifier plus its SSA version. Subscript is
// Unsubscripted until the ssa package assigns it a version.
type Name struct {
	Base      string
	Subscript int
}

// NewName returns an unsubscripted name with the given base.
func NewName(base string) Name {
	return Name{Base: base, Subscript: Unsubscripted}
}

// WithSubscript returns a copy of n with its subscript replaced.
func (n Name) WithSubscript(sub int) Name {
	return Name{Base: n.Base, Subscript: sub}
}

// Less orders names lexicographically by base, then by subscript.
func (n Name) Less(o Name) bool {
	if n.Base != o.Base {
		return n.Base < o.Base
	}
	return n.Subscript < o.Subscript
}

// String renders "base" when unsubscripted, "base_N" otherwise.
func (n Name) String() string {
	if n.Subscript == Unsubscripted {
		return n.Base
	}
	return fmt.Sprintf("%s_%d", n.Base, n.Subscript)
}
