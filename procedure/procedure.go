// Package procedure implements the per-procedure disassembly driver of
// spec.md §4.6: the extension algorithm that integrates freshly decoded
// mnemonics into a block arena, and the worklist loop that drives a
// decoder across an address range.
package procedure

import (
	"fmt"
	"sort"

	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/mnemonic"
)

// BoundaryViolation describes a seed address outside the input range. Run
// does not construct or return it: it drops such a seed and logs a warning
// with kind "BoundaryViolation" instead.
type BoundaryViolation struct {
	Addr uint64
}

func (e *BoundaryViolation) Error() string {
	return fmt.Sprintf("procedure: seed address %#x outside input range", e.Addr)
}

// Procedure is one disassembled routine: an arena of basic blocks, the ID
// of its entry block, and a human-readable name. Entry may be re-seated
// across splits (spec.md §4.6's disassembly loop, last paragraph).
type Procedure struct {
	Name  string
	Arena *block.Arena
	Entry block.ID

	// seedAddr is the original address the procedure was created for; it
	// is used to re-seat Entry after the entry block is split.
	seedAddr uint64

	// pending is the disassembly worklist (spec.md §4.6): addresses still
	// to be decoded, each with the predecessor mnemonic it extends.
	pending []request

	rpoCache []block.ID
}

// New returns an empty procedure seeded at addr; the entry block is
// created once the first mnemonic is decoded.
func New(name string, addr uint64) *Procedure {
	p := &Procedure{Name: name, Arena: block.NewArena(), Entry: block.InvalidID, seedAddr: addr}
	p.pending = []request{{addr: addr}}
	return p
}

// FindBlock is find_block(proc, addr) from spec.md §4.6.
func (p *Procedure) FindBlock(addr uint64) block.ID {
	return p.Arena.FindByAddress(addr)
}

// Blocks returns every live block ID in the procedure's arena, sorted by
// begin address, for consumers that walk the CFG deterministically (the
// render package and diagnostic dumps) rather than relying on map order.
func (p *Procedure) Blocks() []block.ID {
	ids := p.Arena.IDs()
	sort.Slice(ids, func(i, j int) bool {
		return p.Arena.Get(ids[i]).Area.Begin < p.Arena.Get(ids[j]).Area.Begin
	})
	return ids
}

// invalidateLayout drops the cached reverse-postorder; any CFG mutation
// must call this.
func (p *Procedure) invalidateLayout() {
	p.rpoCache = nil
}

// reseatEntry re-seats Entry to whichever live block now contains the
// procedure's original seed address, per spec.md §4.6's closing paragraph.
func (p *Procedure) reseatEntry() {
	if id := p.Arena.FindByAddress(p.seedAddr); id != block.InvalidID {
		p.Entry = id
	}
}

// predRef names the predecessor mnemonic a freshly decoded mnemonic
// extends, per spec.md §4.6's extension algorithm preamble ("a freshly
// produced mnemonic m ... to be appended after a predecessor mnemonic p in
// block pb").
type predRef struct {
	Block block.ID
	Index int // index of p within Block's Mnemonics
	Guard block.Guard
}

// extend runs the five-step extension algorithm of spec.md §4.6 for one
// freshly decoded mnemonic m, reached from pred via guard. pred == nil
// means m is the very first mnemonic the procedure has ever seen (no edge
// is created; a fresh block is simply allocated and becomes the entry).
//
// It returns the block m now lives in and whether the mnemonic was
// already known to the graph (step 3's "already known" / step 4's
// "newly added").
func (p *Procedure) extend(pred *predRef, m *mnemonic.Mnemonic) (landed block.ID, alreadyKnown bool) {
	defer p.invalidateLayout()

	if pred == nil {
		id := p.Arena.New(m.Area, []*mnemonic.Mnemonic{m})
		if p.Entry == block.InvalidID {
			p.Entry = id
		}
		return id, false
	}

	pb := pred.Block
	predBlock := p.Arena.Get(pb)

	// Step 1: if p is not the last mnemonic in pb, split pb at p.end,
	// last?=true, and keep operating on the up half (which retains pb's ID).
	if pred.Index != len(predBlock.Mnemonics)-1 {
		next := predBlock.Mnemonics[pred.Index+1]
		up, _ := p.Arena.Split(pb, next.Area.Begin, true)
		pb = up
	}

	// Step 2/3: does a block already cover m's starting address?
	if tb := p.Arena.FindByAddress(m.Area.Begin); tb != block.InvalidID {
		tbBlock := p.Arena.Get(tb)
		if tbBlock.Area.Begin == m.Area.Begin {
			p.Arena.ConditionalJump(pb, tb, pred.Guard)
			return tb, true
		}
		_, down := p.Arena.Split(tb, m.Area.Begin, false)
		p.Arena.ConditionalJump(pb, down, pred.Guard)
		return down, true
	}

	// Step 4: fresh bytes.
	pbBlock := p.Arena.Get(pb)
	if len(pbBlock.Out) == 0 && pbBlock.Area.End == m.Area.Begin {
		p.Arena.AppendMnemonic(pb, m)
		return pb, false
	}
	newID := p.Arena.New(m.Area, []*mnemonic.Mnemonic{m})
	p.Arena.ConditionalJump(pb, newID, pred.Guard)
	return newID, false
}
