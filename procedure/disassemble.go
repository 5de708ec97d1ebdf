package procedure

import (
	"github.com/sirupsen/logrus"

	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/decoder"
	"github.com/Urethramancer/panopticon/ir"
)

// request is one pending worklist item: decode at addr, and if decoding
// succeeds, extend the graph from pred (nil only for the procedure's
// original seed).
type request struct {
	addr uint64
	pred *predRef
}

// Code is the byte-addressed token source a Procedure decodes against.
// Tokens are pre-split into the architecture's fixed-width words; Base is
// the address of tokens[0] and TokenBytes is each token's width in bytes.
type Code struct {
	Base       uint64
	TokenBytes uint64
	Tokens     []uint64
}

// inRange reports whether addr names a decodable token position.
func (c Code) inRange(addr uint64) bool {
	if addr < c.Base {
		return false
	}
	idx := (addr - c.Base) / c.TokenBytes
	return idx < uint64(len(c.Tokens))
}

func (c Code) pos(addr uint64) int {
	return int((addr - c.Base) / c.TokenBytes)
}

// Seed enqueues an additional worklist address with no predecessor: the
// next Run decodes it into a fresh block with no incoming edge. New queues
// the procedure's own seed address directly, and the flow graph driver
// gives each Call target its own procedure rather than calling Seed.
func (p *Procedure) Seed(addr uint64) {
	p.pending = append(p.pending, request{addr: addr})
}

// ResolveIndirectSeed implements spec.md §4.11 step 2c for one indirect
// edge: it drops the unresolved edge on `from` whose target equals v and
// enqueues addr as a continuation of from's last mnemonic under guard g.
// The caller must invoke Run again to actually decode it.
func (p *Procedure) ResolveIndirectSeed(from block.ID, v ir.Value, g block.Guard, addr uint64) {
	if !p.Arena.DropIndirectTarget(from, v) {
		return
	}
	fb := p.Arena.Get(from)
	p.pending = append(p.pending, request{
		addr: addr,
		pred: &predRef{Block: from, Index: len(fb.Mnemonics) - 1, Guard: g},
	})
}

// Run drains the procedure's pending worklist against code, per spec.md
// §4.6's disassembly loop: for each popped address, decode once with dis,
// integrate every produced mnemonic via the extension algorithm, and queue
// each direct (constant-target) jump as a continuation while recording
// indirect ones as unresolved edges. It returns once the worklist is
// empty, having re-seated Entry if the original seed's block was split.
func (p *Procedure) Run(dis *decoder.Disassembler, code Code) {
	for len(p.pending) > 0 {
		req := p.pending[0]
		p.pending = p.pending[1:]

		if !code.inRange(req.addr) {
			logrus.WithFields(logrus.Fields{"proc": p.Name, "addr": req.addr, "kind": "BoundaryViolation"}).
				Warn("procedure: seed outside input range, dropped")
			continue
		}

		_, state, ok := dis.TryMatch(code.Tokens, code.pos(req.addr), req.addr)
		if !ok {
			logrus.WithFields(logrus.Fields{"proc": p.Name, "addr": req.addr}).
				Warn("procedure: no rule matched, seed dropped")
			continue
		}
		if len(state.Mnemonics) == 0 {
			continue
		}

		pred := req.pred
		for _, m := range state.Mnemonics {
			landed, _ := p.extend(pred, m)
			lb := p.Arena.Get(landed)
			pred = &predRef{Block: landed, Index: len(lb.Mnemonics) - 1, Guard: block.True()}
		}

		for _, j := range state.Jumps {
			if k, isConst := j.Target.ConstValue(); isConst {
				p.pending = append(p.pending, request{
					addr: uint64(k),
					pred: &predRef{Block: pred.Block, Index: pred.Index, Guard: j.Guard},
				})
				continue
			}
			p.Arena.IndirectJump(pred.Block, j.Guard, j.Target)
		}
	}

	p.reseatEntry()
}
