package block

import (
	"github.com/Urethramancer/panopticon/ir"
	"github.com/Urethramancer/panopticon/mnemonic"
)

// ID indexes a Block within an Arena. The zero value is never a valid ID;
// arenas hand out IDs starting at 1.
type ID uint32

// InvalidID is the sentinel returned where no block applies (e.g. the
// cleared self-idom of an entry block in dflow).
const InvalidID ID = 0

// Target is a control-transfer edge's destination: exactly one of Block or
// Value is populated, mirroring spec.md's ctrans union.
type Target struct {
	resolved bool
	block    ID
	value    ir.Value
}

// ResolvedTarget builds a Target naming a known block.
func ResolvedTarget(id ID) Target { return Target{resolved: true, block: id} }

// UnresolvedTarget builds a Target naming an as-yet-undecoded IR value
// (e.g. an indirect jump's computed address expression).
func UnresolvedTarget(v ir.Value) Target { return Target{resolved: false, value: v} }

// Resolved reports whether the target names a concrete block.
func (t Target) Resolved() bool { return t.resolved }

// Block returns the target block ID; valid only when Resolved() is true.
func (t Target) Block() ID { return t.block }

// Value returns the unresolved IR value; valid only when Resolved() is false.
func (t Target) Value() ir.Value { return t.value }

// OutEdge is an outgoing control-transfer edge: a guard plus a target that
// may or may not yet be a resolved block.
type OutEdge struct {
	Guard  Guard
	Target Target
}

// InEdge is an incoming control-transfer edge recorded on the target block;
// its source is always a resolved block, since it is only added once the
// source block exists.
type InEdge struct {
	Guard Guard
	From  ID
}

// Block is a maximal single-entry straight-line mnemonic sequence: an
// address range, an ordered immutable-once-appended mnemonic list, and its
// incoming/outgoing edge lists. Block is referenced only by ID; callers
// re-resolve through an Arena rather than holding pointers across mutation.
type Block struct {
	ID        ID
	Area      mnemonic.Area
	Mnemonics []*mnemonic.Mnemonic
	In        []InEdge
	Out       []OutEdge
}

// IR flattens the block's mnemonics into their ordered IR instruction view.
func (b *Block) IR() []*ir.Instruction {
	var out []*ir.Instruction
	for _, m := range b.Mnemonics {
		out = append(out, m.Instructions...)
	}
	return out
}

// Arena owns a procedure's blocks, addressed by ID so that split/merge can
// mutate and reallocate without invalidating previously-issued references
// (per DESIGN NOTES §9).
type Arena struct {
	blocks map[ID]*Block
	next   ID
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{blocks: make(map[ID]*Block), next: 1}
}

// New allocates a fresh block spanning area with the given mnemonics and
// returns its ID.
func (a *Arena) New(area mnemonic.Area, mnems []*mnemonic.Mnemonic) ID {
	id := a.next
	a.next++
	a.blocks[id] = &Block{ID: id, Area: area, Mnemonics: append([]*mnemonic.Mnemonic(nil), mnems...)}
	return id
}

// Get returns the block for id, or nil if it does not exist (e.g. it was
// removed by Delete).
func (a *Arena) Get(id ID) *Block { return a.blocks[id] }

// AppendMnemonic extends an existing block with a mnemonic immediately
// following its current area, used by the procedure driver's extension
// algorithm (spec.md §4.6 step 4, "newly added to existing block").
func (a *Arena) AppendMnemonic(id ID, m *mnemonic.Mnemonic) {
	b := a.blocks[id]
	b.Mnemonics = append(b.Mnemonics, m)
	b.Area = mnemonic.NewArea(b.Area.Begin, m.Area.End)
}

// Delete removes a block from the arena. Used when merge folds two blocks
// into one, retiring the absorbed block's ID.
func (a *Arena) Delete(id ID) { delete(a.blocks, id) }

// IDs returns every live block ID, in no particular order.
func (a *Arena) IDs() []ID {
	out := make([]ID, 0, len(a.blocks))
	for id := range a.blocks {
		out = append(out, id)
	}
	return out
}

// FindByAddress returns the ID of the block whose area contains addr, or
// InvalidID if none does.
func (a *Arena) FindByAddress(addr uint64) ID {
	for id, b := range a.blocks {
		if b.Area.ContainsAddress(addr) {
			return id
		}
	}
	return InvalidID
}

// recordOut appends an outgoing edge to from, replacing any existing edge to
// the same resolved target (spec.md §4.6 conditional_jump/unconditional_jump
// "pre-existing edge to the same target is replaced").
func (a *Arena) recordOut(from ID, guard Guard, target Target) {
	fb := a.blocks[from]
	for i, e := range fb.Out {
		if e.Target.resolved && target.resolved && e.Target.block == target.block {
			fb.Out[i] = OutEdge{Guard: guard, Target: target}
			return
		}
		if !e.Target.resolved && !target.resolved && e.Target.value.Equal(target.value) {
			fb.Out[i] = OutEdge{Guard: guard, Target: target}
			return
		}
	}
	fb.Out = append(fb.Out, OutEdge{Guard: guard, Target: target})
}

func (a *Arena) recordIn(to ID, guard Guard, from ID) {
	tb := a.blocks[to]
	for i, e := range tb.In {
		if e.From == from {
			tb.In[i] = InEdge{Guard: guard, From: from}
			return
		}
	}
	tb.In = append(tb.In, InEdge{Guard: guard, From: from})
}

// ConditionalJump inserts a guarded edge from->to in both endpoints' edge
// lists, replacing a pre-existing edge to the same target.
func (a *Arena) ConditionalJump(from, to ID, guard Guard) {
	a.recordOut(from, guard, ResolvedTarget(to))
	a.recordIn(to, guard, from)
}

// UnconditionalJump is ConditionalJump with an empty (always-true) guard.
func (a *Arena) UnconditionalJump(from, to ID) {
	a.ConditionalJump(from, to, True())
}

// IndirectJump records an outgoing edge whose target is an unresolved IR
// value (spec.md §4.6 "Indirect jumps"). No incoming edge is recorded since
// there is no target block yet.
func (a *Arena) IndirectJump(from ID, guard Guard, target ir.Value) {
	a.recordOut(from, guard, UnresolvedTarget(target))
}

// ResolveIndirect replaces an unresolved outgoing edge whose target value
// equals v with a resolved edge to `to`, and records the matching incoming
// edge. It reports whether such an edge was found. The flow graph driver
// does not call it: it drops the indirect edge with DropIndirectTarget and
// re-seeds disassembly at the proven address instead.
func (a *Arena) ResolveIndirect(from ID, v ir.Value, to ID) bool {
	fb := a.blocks[from]
	for i, e := range fb.Out {
		if !e.Target.resolved && e.Target.value.Equal(v) {
			fb.Out[i].Target = ResolvedTarget(to)
			a.recordIn(to, fb.Out[i].Guard, from)
			return true
		}
	}
	return false
}

// DropIndirectTarget removes the outgoing edge on `from` whose unresolved
// target equals v, if any. Used once a higher-level driver has decided how
// to re-seed disassembly for a previously indirect jump (spec.md §4.11 step
// 2c: "removing the indirect edge and adding k to the seed list").
func (a *Arena) DropIndirectTarget(from ID, v ir.Value) bool {
	fb := a.blocks[from]
	for i, e := range fb.Out {
		if !e.Target.resolved && e.Target.value.Equal(v) {
			fb.Out = append(fb.Out[:i], fb.Out[i+1:]...)
			return true
		}
	}
	return false
}

// removeIn drops every incoming edge on `to` coming from `from`.
func (a *Arena) removeIn(to, from ID) {
	tb := a.blocks[to]
	out := tb.In[:0]
	for _, e := range tb.In {
		if e.From != from {
			out = append(out, e)
		}
	}
	tb.In = out
}

// removeOut drops every outgoing resolved edge on `from` going to `to`.
func (a *Arena) removeOut(from, to ID) {
	fb := a.blocks[from]
	out := fb.Out[:0]
	for _, e := range fb.Out {
		if !(e.Target.resolved && e.Target.block == to) {
			out = append(out, e)
		}
	}
	fb.Out = out
}
