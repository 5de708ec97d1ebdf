package block

import "github.com/Urethramancer/panopticon/mnemonic"

// findBoundary locates the mnemonic index Split should act on, per spec.md
// §4.6: if at exactly starts some mnemonic, the split is unambiguous and up
// gets everything before it. Otherwise at falls strictly inside exactly one
// mnemonic's range; lastGoesUp decides whether that whole mnemonic joins up
// or down (mnemonics are never sliced internally).
func findBoundary(mnems []*mnemonic.Mnemonic, at uint64, lastGoesUp bool) int {
	for i, m := range mnems {
		if m.Area.Begin == at {
			return i
		}
		if m.Area.Begin < at && at < m.Area.End {
			if lastGoesUp {
				return i + 1
			}
			return i
		}
	}
	return len(mnems)
}

// retargetIn rewrites, on block `to`'s incoming edge list, any entry whose
// From equals `oldFrom` to instead read `newFrom`.
func (a *Arena) retargetIn(to, oldFrom, newFrom ID) {
	tb := a.blocks[to]
	for i, e := range tb.In {
		if e.From == oldFrom {
			tb.In[i].From = newFrom
		}
	}
}

// Split partitions the block at id at address `at`, per spec.md §4.6. It
// mutates the original block in place to become `up` (area
// [original.Begin, at), original incoming edges, a single new unconditional
// edge to `down`) and allocates a new block `down` (area [at,
// original.End), original outgoing edges, a single incoming edge from
// `up`). Self-edges move to down->down, since the instructions that create
// them now live in down. lastGoesUp selects which side keeps the mnemonic
// containing `at` when `at` is not already a clean boundary.
func (a *Arena) Split(id ID, at uint64, lastGoesUp bool) (up, down ID) {
	orig := a.blocks[id]
	i := findBoundary(orig.Mnemonics, at, lastGoesUp)

	upMnems := orig.Mnemonics[:i]
	downMnems := orig.Mnemonics[i:]

	downID := a.next
	a.next++
	downBlock := &Block{
		ID:        downID,
		Area:      mnemonic.NewArea(at, orig.Area.End),
		Mnemonics: append([]*mnemonic.Mnemonic(nil), downMnems...),
	}
	a.blocks[downID] = downBlock

	// Redistribute outgoing edges: self-loops move entirely to down<->down;
	// all others move to down, and the far side's incoming reference to
	// `id` is repointed at downID.
	for _, e := range orig.Out {
		if e.Target.resolved && e.Target.block == id {
			downBlock.Out = append(downBlock.Out, OutEdge{Guard: e.Guard, Target: ResolvedTarget(downID)})
			a.recordIn(downID, e.Guard, downID)
			continue
		}
		downBlock.Out = append(downBlock.Out, e)
		if e.Target.resolved {
			a.retargetIn(e.Target.block, id, downID)
		}
	}

	// Self-loop incoming entries pair with the self-loop outgoing entries
	// already handled above; drop the stale original-ID self entry — every
	// other predecessor is unaffected, since `up` keeps id's identity.
	var upIn []InEdge
	for _, e := range orig.In {
		if e.From == id {
			continue
		}
		upIn = append(upIn, e)
	}

	orig.Area = mnemonic.NewArea(orig.Area.Begin, at)
	orig.Mnemonics = append([]*mnemonic.Mnemonic(nil), upMnems...)
	orig.Out = nil
	orig.In = upIn

	a.UnconditionalJump(id, downID)
	return id, downID
}

// Merge folds b into a when a.Area.End == b.Area.Begin, a has exactly one
// outgoing (unconditional) edge to b, and b has exactly one incoming edge
// from a, per spec.md §4.6. It returns the merged block's ID (always a's);
// b is removed from the arena. Merge panics if the preconditions do not
// hold — callers must check first, since an invalid merge is an
// InvariantViolation per spec.md §7.
func (a *Arena) Merge(aID, bID ID) ID {
	ab := a.blocks[aID]
	bb := a.blocks[bID]
	if ab.Area.End != bb.Area.Begin {
		panic("block: merge of non-adjacent blocks")
	}
	if len(ab.Out) != 1 || !ab.Out[0].Target.resolved || ab.Out[0].Target.block != bID || !ab.Out[0].Guard.IsTrue() {
		panic("block: merge requires a single unconditional edge a->b")
	}
	if len(bb.In) != 1 || bb.In[0].From != aID {
		panic("block: merge requires a single incoming edge b<-a")
	}

	ab.Area = mnemonic.NewArea(ab.Area.Begin, bb.Area.End)
	ab.Mnemonics = append(ab.Mnemonics, bb.Mnemonics...)
	ab.Out = nil
	for _, e := range bb.Out {
		if e.Target.resolved && e.Target.block == bID {
			ab.Out = append(ab.Out, OutEdge{Guard: e.Guard, Target: ResolvedTarget(aID)})
			a.retargetIn(aID, bID, aID)
			continue
		}
		ab.Out = append(ab.Out, e)
		if e.Target.resolved {
			a.retargetIn(e.Target.block, bID, aID)
		}
	}

	a.Delete(bID)
	return aID
}
