// Package ssa builds semi-pruned SSA form over a procedure's block arena,
// per spec.md §4.9: φ placement at dominance frontiers followed by
// dominator-tree pre-order renaming.
package ssa

import (
	"sort"

	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/dflow"
	"github.com/Urethramancer/panopticon/ir"
)

// Construct places φ functions and renames every variable in place. dom and
// live must have been computed against the same arena and entry; live's
// UEVar restricts φ placement to semi-pruned form.
func Construct(a *block.Arena, entry block.ID, dom *dflow.Dominance, live *dflow.Liveness) {
	widths := nameWidths(a, dom.RPO)
	placePhis(a, dom, live, widths)
	renamer{arena: a, dom: dom, counter: map[string]int{}, stack: map[string][]int{}}.run(entry)
}

// nameWidths scans every instruction in ids for a concrete width per base
// name, used to size φ destinations before any operand of theirs has been
// renamed.
func nameWidths(a *block.Arena, ids []block.ID) map[string]uint {
	widths := make(map[string]uint)
	for _, id := range ids {
		for _, inst := range a.Get(id).IR() {
			if n, ok := inst.Dest.Name(); ok {
				widths[n.Base] = inst.Dest.Width()
			}
			for _, op := range inst.Operands {
				if n, ok := op.Name(); ok {
					if _, have := widths[n.Base]; !have {
						widths[n.Base] = op.Width()
					}
				}
			}
		}
	}
	return widths
}

func hasPhi(b *block.Block, base string) bool {
	if len(b.Mnemonics) == 0 {
		return false
	}
	for _, inst := range b.Mnemonics[0].Instructions {
		if inst.Op != ir.Phi {
			continue
		}
		if n, ok := inst.Dest.Name(); ok && n.Base == base {
			return true
		}
	}
	return false
}

// placePhis implements spec.md §4.9's "Placement" paragraph, restricted to
// semi-pruned form: only names appearing in some block's UEVar get a φ.
func placePhis(a *block.Arena, dom *dflow.Dominance, live *dflow.Liveness, widths map[string]uint) {
	for bit := uint(0); bit < uint(len(live.Universe)); bit++ {
		if !semiPruned(live, bit) {
			continue
		}
		name := live.NameAt(bit)

		var worklist []block.ID
		for _, id := range dom.RPO {
			if live.VarKill[id].Test(bit) {
				worklist = append(worklist, id)
			}
		}
		hasPhiFor := map[block.ID]bool{}

		for len(worklist) > 0 {
			id := worklist[0]
			worklist = worklist[1:]
			for _, dfID := range dom.Frontier[id] {
				dfBlock := a.Get(dfID)
				if len(dfBlock.Mnemonics) == 0 || hasPhi(dfBlock, name.Base) || hasPhiFor[dfID] {
					continue
				}
				insertPhi(a, dfID, name.Base, widths[name.Base])
				hasPhiFor[dfID] = true
				worklist = append(worklist, dfID)
			}
		}
	}
}

func semiPruned(live *dflow.Liveness, bit uint) bool {
	for _, ue := range live.UEVar {
		if ue.Test(bit) {
			return true
		}
	}
	return false
}

// insertPhi prepends a φ instruction for base at the head of dfID's first
// mnemonic, with one unsubscripted placeholder operand per predecessor;
// the renaming pass gives each operand slot its subscript.
func insertPhi(a *block.Arena, dfID block.ID, base string, width uint) {
	if width == 0 {
		width = 32
	}
	b := a.Get(dfID)
	operands := make([]ir.Value, len(b.In))
	for i := range operands {
		operands[i] = ir.Var(ir.NewName(base), width)
	}
	dest := ir.Var(ir.NewName(base), width)
	phi, err := ir.NewInstruction(ir.Phi, "phi", dest, operands)
	if err != nil {
		return
	}
	head := b.Mnemonics[0]
	head.Instructions = append([]*ir.Instruction{phi}, head.Instructions...)
}

// renamer implements spec.md §4.9's "Renaming" paragraph: a stack and
// monotone counter per base name, walked in dominator-tree pre-order.
type renamer struct {
	arena   *block.Arena
	dom     *dflow.Dominance
	counter map[string]int
	stack   map[string][]int
}

func (r renamer) fresh(base string) int {
	r.counter[base]++
	sub := r.counter[base]
	r.stack[base] = append(r.stack[base], sub)
	return sub
}

func (r renamer) top(base string) (int, bool) {
	s := r.stack[base]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

func (r renamer) pop(base string) {
	s := r.stack[base]
	r.stack[base] = s[:len(s)-1]
}

func (r renamer) renameOperand(v ir.Value) ir.Value {
	n, ok := v.Name()
	if !ok || n.Subscript != ir.Unsubscripted {
		return v
	}
	if sub, ok := r.top(n.Base); ok {
		return ir.Var(n.WithSubscript(sub), v.Width())
	}
	return v
}

func (r renamer) children(id block.ID) []block.ID {
	var out []block.ID
	for _, cand := range r.dom.RPO {
		if cand != id && r.dom.Idom[cand] == id {
			out = append(out, cand)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.arena.Get(out[i]).Area.Begin < r.arena.Get(out[j]).Area.Begin
	})
	return out
}

// run renames block id and recurses into its dominator-tree children, per
// the five-step algorithm of spec.md §4.9.
func (r renamer) run(id block.ID) {
	b := r.arena.Get(id)
	var pushedBases []string

	for _, inst := range b.IR() {
		if inst.Op != ir.Phi {
			for i, op := range inst.Operands {
				inst.Operands[i] = r.renameOperand(op)
			}
		}
		if n, ok := inst.Dest.Name(); ok && n.Subscript == ir.Unsubscripted {
			sub := r.fresh(n.Base)
			inst.Dest = ir.Var(n.WithSubscript(sub), inst.Dest.Width())
			pushedBases = append(pushedBases, n.Base)
		}
	}

	for i, e := range b.Out {
		rels := e.Guard.Relations
		for j, rel := range rels {
			rels[j].Left = r.renameOperand(rel.Left)
			rels[j].Right = r.renameOperand(rel.Right)
		}
		b.Out[i].Guard = block.NewGuard(rels...)
		if !e.Target.Resolved() {
			b.Out[i].Target = block.UnresolvedTarget(r.renameOperand(e.Target.Value()))
			continue
		}

		succ := r.arena.Get(e.Target.Block())
		pos := predIndex(succ, id)
		if pos < 0 || len(succ.Mnemonics) == 0 {
			continue
		}
		for _, inst := range succ.Mnemonics[0].Instructions {
			if inst.Op != ir.Phi || pos >= len(inst.Operands) {
				continue
			}
			inst.Operands[pos] = r.renameOperand(inst.Operands[pos])
		}
	}

	for _, child := range r.children(id) {
		r.run(child)
	}

	for _, base := range pushedBases {
		r.pop(base)
	}
}

func predIndex(b *block.Block, from block.ID) int {
	for i, e := range b.In {
		if e.From == from {
			return i
		}
	}
	return -1
}
