// Package lattice provides the two concrete abstract-interpretation
// domains of spec.md §3/§4.10: taint tracking and constant propagation,
// both implemented against absinterp.Lattice.
package lattice

import "github.com/Urethramancer/panopticon/ir"

// NameSet is an immutable-by-convention set of names; callers must clone
// before mutating one held in a TaintState, per spec.md §9's persistent-map
// note.
type NameSet map[ir.Name]struct{}

func (s NameSet) clone() NameSet {
	out := make(NameSet, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}

func unionSets(a, b NameSet) NameSet {
	out := a.clone()
	for n := range b {
		out[n] = struct{}{}
	}
	return out
}

func equalSets(a, b NameSet) bool {
	if len(a) != len(b) {
		return false
	}
	for n := range a {
		if _, ok := b[n]; !ok {
			return false
		}
	}
	return true
}

// TaintState maps a name to the set of variable names (architectural and
// temporary alike) its value transitively depends on. A missing key is the
// same as an empty set (⊥).
type TaintState map[ir.Name]NameSet

// Taint implements absinterp.Lattice[TaintState] per spec.md §4.10's taint
// transfer: taint[d] = {operand names} ∪ ⋃ taint[operand names].
type Taint struct{}

func (Taint) Bottom() TaintState { return TaintState{} }

func (Taint) Join(a, b TaintState) TaintState {
	out := make(TaintState, len(a)+len(b))
	for n, s := range a {
		out[n] = s
	}
	for n, s := range b {
		if cur, ok := out[n]; ok {
			out[n] = unionSets(cur, s)
		} else {
			out[n] = s
		}
	}
	return out
}

func (Taint) Equal(a, b TaintState) bool {
	if len(a) != len(b) {
		return false
	}
	for n, s := range a {
		os, ok := b[n]
		if !ok || !equalSets(s, os) {
			return false
		}
	}
	return true
}

func (Taint) Transfer(state TaintState, inst *ir.Instruction) TaintState {
	dest, ok := inst.Dest.Name()
	if !ok {
		return state
	}

	acc := NameSet{}
	for _, op := range inst.Operands {
		n, ok := op.Name()
		if !ok {
			continue
		}
		acc[n] = struct{}{}
		if upstream, ok := state[n]; ok {
			acc = unionSets(acc, upstream)
		}
	}

	out := make(TaintState, len(state)+1)
	for n, s := range state {
		out[n] = s
	}
	out[dest] = acc
	return out
}
