// Package dflow implements the dominance and liveness analyses of
// spec.md §4.7–§4.8: reverse-postorder, the iterative Cooper–Harvey–Kennedy
// immediate-dominator computation, dominance frontiers, and the classic
// VarKill/UEVar/LiveOut liveness fixed point.
package dflow

import (
	"sort"

	"github.com/Urethramancer/panopticon/block"
)

// Dominance holds one procedure's dominator information: the reverse
// postorder it was computed against, each block's immediate dominator
// (InvalidID for the entry, whose self-idom is cleared per spec.md §4.7's
// last sentence), and dominance frontiers.
type Dominance struct {
	RPO      []block.ID
	index    map[block.ID]int
	Idom     map[block.ID]block.ID
	Frontier map[block.ID][]block.ID
}

// successorsSorted returns b's resolved successor blocks, tie-broken by
// begin address (spec.md §5's determinism guarantee #2).
func successorsSorted(a *block.Arena, b *block.Block) []block.ID {
	seen := make(map[block.ID]bool)
	var out []block.ID
	for _, e := range b.Out {
		if !e.Target.Resolved() {
			continue
		}
		id := e.Target.Block()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return a.Get(out[i]).Area.Begin < a.Get(out[j]).Area.Begin
	})
	return out
}

// ReversePostorder walks the resolved-edge subgraph reachable from entry
// and returns blocks in reverse postorder.
func ReversePostorder(a *block.Arena, entry block.ID) []block.ID {
	visited := make(map[block.ID]bool)
	var post []block.ID

	var visit func(id block.ID)
	visit = func(id block.ID) {
		if visited[id] {
			return
		}
		visited[id] = true
		b := a.Get(id)
		for _, s := range successorsSorted(a, b) {
			visit(s)
		}
		post = append(post, id)
	}
	visit(entry)

	rpo := make([]block.ID, len(post))
	for i, id := range post {
		rpo[len(post)-1-i] = id
	}
	return rpo
}

func intersect(x, y block.ID, idx map[block.ID]int, idom map[block.ID]block.ID) block.ID {
	for x != y {
		for idx[x] > idx[y] {
			x = idom[x]
		}
		for idx[y] > idx[x] {
			y = idom[y]
		}
	}
	return x
}

// Compute runs dominance computation over the blocks reachable from entry,
// per spec.md §4.7.
func Compute(a *block.Arena, entry block.ID) *Dominance {
	rpo := ReversePostorder(a, entry)
	idx := make(map[block.ID]int, len(rpo))
	for i, id := range rpo {
		idx[id] = i
	}

	idom := map[block.ID]block.ID{entry: entry}

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			blk := a.Get(b)
			newIdom := block.InvalidID
			for _, e := range blk.In {
				p := e.From
				if _, ok := idx[p]; !ok {
					continue // predecessor unreachable from entry
				}
				if _, ok := idom[p]; !ok {
					continue // not processed yet this pass
				}
				if newIdom == block.InvalidID {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom, idx, idom)
				}
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	idom[entry] = block.InvalidID

	frontier := make(map[block.ID][]block.ID)
	for _, b := range rpo {
		blk := a.Get(b)
		if len(blk.In) < 2 {
			continue
		}
		idomB := idom[b]
		for _, e := range blk.In {
			runner := e.From
			if _, ok := idx[runner]; !ok {
				continue
			}
			for runner != idomB {
				frontier[runner] = appendUnique(frontier[runner], b)
				runner = idom[runner]
				if runner == block.InvalidID {
					break
				}
			}
		}
	}

	return &Dominance{RPO: rpo, index: idx, Idom: idom, Frontier: frontier}
}

func appendUnique(s []block.ID, id block.ID) []block.ID {
	for _, x := range s {
		if x == id {
			return s
		}
	}
	return append(s, id)
}

// Dominates reports whether d dominates b (equal counts as dominating).
func (dom *Dominance) Dominates(d, b block.ID) bool {
	cur := b
	for {
		if cur == d {
			return true
		}
		if cur == dom.RPO[0] {
			return false
		}
		cur = dom.Idom[cur]
	}
}
