// Package absinterp implements the generic monotone-framework fixed-point
// driver of spec.md §4.10: given a lattice domain and a transfer function,
// compute every block's in/out state by iterating in reverse postorder
// until the out-states stop changing.
package absinterp

import (
	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/dflow"
	"github.com/Urethramancer/panopticon/ir"
)

// Lattice is a monotone dataflow domain over per-name values of type T.
// Join must be commutative, associative, and idempotent; Transfer must be
// monotone with respect to Join.
type Lattice[T any] interface {
	Bottom() T
	Join(a, b T) T
	Equal(a, b T) bool
	Transfer(state T, inst *ir.Instruction) T
}

// Result holds the fixed point reached for one procedure: each block's
// in-state (the join of its predecessors' out-states) and out-state (the
// in-state folded through the block's instructions).
type Result[T any] struct {
	In  map[block.ID]T
	Out map[block.ID]T
}

// Run computes the fixed point of lat over every block in dom.RPO, per
// spec.md §4.10. Predecessors outside dom.RPO (unreachable from the
// procedure entry) do not contribute to a join.
func Run[T any](a *block.Arena, dom *dflow.Dominance, lat Lattice[T]) *Result[T] {
	res := &Result[T]{
		In:  make(map[block.ID]T, len(dom.RPO)),
		Out: make(map[block.ID]T, len(dom.RPO)),
	}
	reachable := make(map[block.ID]bool, len(dom.RPO))
	for _, id := range dom.RPO {
		reachable[id] = true
		res.Out[id] = lat.Bottom()
	}

	changed := true
	for changed {
		changed = false
		for _, id := range dom.RPO {
			b := a.Get(id)

			in := lat.Bottom()
			first := true
			for _, e := range b.In {
				if !reachable[e.From] {
					continue
				}
				if first {
					in = res.Out[e.From]
					first = false
				} else {
					in = lat.Join(in, res.Out[e.From])
				}
			}
			res.In[id] = in

			out := in
			for _, inst := range b.IR() {
				out = lat.Transfer(out, inst)
			}
			if !lat.Equal(out, res.Out[id]) {
				res.Out[id] = out
				changed = true
			}
		}
	}

	return res
}
