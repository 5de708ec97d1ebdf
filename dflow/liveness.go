package dflow

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/ir"
)

// Liveness holds per-block VarKill/UEVar/LiveOut sets over the universe of
// variable names (base plus SSA subscript, so x_1 and x_2 are distinct)
// seen across the procedure (spec.md §4.8). Each set is
// a bitset indexed through Universe/index for compactness on procedures
// with many names.
type Liveness struct {
	Universe []ir.Name
	index    map[ir.Name]uint

	VarKill map[block.ID]*bitset.BitSet
	UEVar   map[block.ID]*bitset.BitSet
	LiveOut map[block.ID]*bitset.BitSet
}

// NameAt returns the universe name at bit position i.
func (lv *Liveness) NameAt(i uint) ir.Name { return lv.Universe[i] }

func (lv *Liveness) nameBit(n ir.Name) uint {
	if i, ok := lv.index[n]; ok {
		return i
	}
	i := uint(len(lv.Universe))
	lv.index[n] = i
	lv.Universe = append(lv.Universe, n)
	return i
}

// ComputeLiveness runs liveness analysis over every block in rpo, per
// spec.md §4.8. ids gives the full block set (rpo may omit unreachable
// blocks, but VarKill/UEVar are still computed for every block since they
// are purely local properties).
func ComputeLiveness(a *block.Arena, ids []block.ID, rpo []block.ID) *Liveness {
	lv := &Liveness{index: make(map[ir.Name]uint)}
	lv.VarKill = make(map[block.ID]*bitset.BitSet, len(ids))
	lv.UEVar = make(map[block.ID]*bitset.BitSet, len(ids))
	lv.LiveOut = make(map[block.ID]*bitset.BitSet, len(ids))

	// First pass: discover the name universe and local VarKill/UEVar sets
	// using plain name sets, since the universe size isn't known yet.
	varkillNames := make(map[block.ID]map[ir.Name]bool, len(ids))
	uevarNames := make(map[block.ID]map[ir.Name]bool, len(ids))

	for _, id := range ids {
		b := a.Get(id)
		vk := make(map[ir.Name]bool)
		ue := make(map[ir.Name]bool)
		for _, inst := range b.IR() {
			if inst.Op == ir.Phi {
				continue
			}
			for _, op := range inst.Operands {
				if n, ok := op.Name(); ok {
					lv.nameBit(n)
					if !vk[n] {
						ue[n] = true
					}
				}
			}
			if n, ok := inst.Dest.Name(); ok {
				lv.nameBit(n)
				vk[n] = true
			}
		}
		varkillNames[id] = vk
		uevarNames[id] = ue
	}

	width := uint(len(lv.Universe))
	toBitset := func(names map[ir.Name]bool) *bitset.BitSet {
		bs := bitset.New(width)
		for n := range names {
			bs.Set(lv.index[n])
		}
		return bs
	}

	for _, id := range ids {
		lv.VarKill[id] = toBitset(varkillNames[id])
		lv.UEVar[id] = toBitset(uevarNames[id])
		lv.LiveOut[id] = bitset.New(width)
	}

	allNames := bitset.New(width)
	for _, id := range ids {
		allNames.InPlaceUnion(lv.VarKill[id])
		allNames.InPlaceUnion(lv.UEVar[id])
	}

	changed := true
	for changed {
		changed = false
		for _, id := range rpo {
			b := a.Get(id)
			newOut := bitset.New(width)
			for _, e := range b.Out {
				if !e.Target.Resolved() {
					continue
				}
				s := e.Target.Block()
				notKilled := allNames.Difference(lv.VarKill[s])
				through := lv.LiveOut[s].Intersection(notKilled)
				newOut.InPlaceUnion(lv.UEVar[s])
				newOut.InPlaceUnion(through)
			}
			if !newOut.Equal(lv.LiveOut[id]) {
				lv.LiveOut[id] = newOut
				changed = true
			}
		}
	}

	return lv
}
