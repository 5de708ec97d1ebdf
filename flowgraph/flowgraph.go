// Package flowgraph implements the outer fixed point of spec.md §4.11: a
// worklist of call targets, each driven through disassembly, dominance,
// liveness, SSA construction and constant propagation to its own fixed
// point, with indirect jumps resolved and newly discovered callees fed
// back into the worklist.
package flowgraph

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Urethramancer/panopticon/absinterp"
	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/decoder"
	"github.com/Urethramancer/panopticon/dflow"
	"github.com/Urethramancer/panopticon/ir"
	"github.com/Urethramancer/panopticon/lattice"
	"github.com/Urethramancer/panopticon/procedure"
	"github.com/Urethramancer/panopticon/ssa"
)

// maxOuterIterations caps the number of outer worklist rounds a single
// Analyze call runs, guarding against a pathological input that would
// otherwise keep discovering new call targets forever.
const maxOuterIterations = 10000

// FlowGraph is the top-level output of spec.md §6: every analyzed
// procedure keyed by its entry address, plus the call graph induced by
// resolved Call targets. Per spec.md §5's reader/writer policy, mutation
// happens only through Analyze; readers see a consistent snapshot once
// Analyze returns.
type FlowGraph struct {
	mu         sync.Mutex
	procedures map[uint64]*procedure.Procedure
	calls      map[uint64]map[uint64]bool
}

// New returns an empty flow graph.
func New() *FlowGraph {
	return &FlowGraph{
		procedures: make(map[uint64]*procedure.Procedure),
		calls:      make(map[uint64]map[uint64]bool),
	}
}

// Procedure returns the procedure seeded at addr, or nil if none has been
// analyzed there.
func (fg *FlowGraph) Procedure(addr uint64) *procedure.Procedure {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return fg.procedures[addr]
}

// Procedures returns every analyzed procedure's entry address, sorted.
func (fg *FlowGraph) Procedures() []uint64 {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	out := make([]uint64, 0, len(fg.procedures))
	for addr := range fg.procedures {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Callees returns the sorted set of addresses addr is known to call.
func (fg *FlowGraph) Callees(addr uint64) []uint64 {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	callees := fg.calls[addr]
	out := make([]uint64, 0, len(callees))
	for c := range callees {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CallGraph returns the call graph induced by every resolved Call target
// discovered during Analyze: an adjacency map from each analyzed
// procedure's entry address to the sorted, deduplicated addresses it calls,
// per spec.md §6's Output ("a call graph induced by resolved Call
// targets").
func (fg *FlowGraph) CallGraph() map[uint64][]uint64 {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	out := make(map[uint64][]uint64, len(fg.calls))
	for addr, callees := range fg.calls {
		list := make([]uint64, 0, len(callees))
		for c := range callees {
			list = append(list, c)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		out[addr] = list
	}
	return out
}

// Options configures Analyze.
type Options struct {
	// Concurrency bounds how many procedures may be disassembled at once.
	// Values <= 1 analyze the outer worklist strictly sequentially.
	Concurrency int
}

// Analyze runs the outer driver of spec.md §4.11, starting from seeds, and
// returns the resulting flow graph. dis must already have every rule the
// architecture needs; code is the byte source every procedure decodes
// against.
func Analyze(dis *decoder.Disassembler, code procedure.Code, seeds []uint64, opts Options) *FlowGraph {
	fg := New()
	worklist := dedupUncovered(fg, seeds)

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	type outcome struct {
		addr    uint64
		callees []uint64
	}

	iterations := 0
	for len(worklist) > 0 {
		sem := make(chan struct{}, concurrency)
		var wg sync.WaitGroup
		results := make(chan outcome, len(worklist))

		for _, addr := range worklist {
			wg.Add(1)
			sem <- struct{}{}
			go func(addr uint64) {
				defer wg.Done()
				defer func() { <-sem }()
				proc, callees := analyzeProcedure(addr, dis, code)
				fg.mu.Lock()
				fg.procedures[addr] = proc
				if fg.calls[addr] == nil {
					fg.calls[addr] = make(map[uint64]bool, len(callees))
				}
				for _, k := range callees {
					fg.calls[addr][k] = true
				}
				fg.mu.Unlock()
				results <- outcome{addr: addr, callees: callees}
			}(addr)
		}
		wg.Wait()
		close(results)

		var next []uint64
		for r := range results {
			next = append(next, r.callees...)
		}
		worklist = dedupUncovered(fg, next)

		iterations++
		if iterations > maxOuterIterations {
			logrus.Warn("flowgraph: outer worklist exceeded iteration cap, stopping")
			break
		}
	}

	return fg
}

// dedupUncovered filters addrs down to those not yet covered by a
// procedure in fg, removing duplicates.
func dedupUncovered(fg *FlowGraph, addrs []uint64) []uint64 {
	seen := map[uint64]bool{}
	var out []uint64
	for _, addr := range addrs {
		if seen[addr] || fg.Procedure(addr) != nil {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

// analyzeProcedure runs spec.md §4.11 step 2's inner loop for one
// procedure to its fixed point and returns it along with every address
// named by a Call instruction found along the way.
func analyzeProcedure(addr uint64, dis *decoder.Disassembler, code procedure.Code) (*procedure.Procedure, []uint64) {
	proc := procedure.New(procAddrName(addr), addr)

	for {
		proc.Run(dis, code)

		ids := proc.Arena.IDs()
		dom := dflow.Compute(proc.Arena, proc.Entry)
		live := dflow.ComputeLiveness(proc.Arena, ids, dom.RPO)
		ssa.Construct(proc.Arena, proc.Entry, dom, live)

		cprop := absinterp.Run(proc.Arena, dom, lattice.Cprop{})

		dirty := resolveIndirectEdges(proc, cprop)
		if !dirty {
			callees := collectCallTargets(proc.Arena, dom.RPO)
			return proc, callees
		}
	}
}

// resolveIndirectEdges implements spec.md §4.11 step 2c: every outgoing
// edge whose unresolved target is a Variable with a proven Const(k) cprop
// value becomes a continuation seeded at k.
func resolveIndirectEdges(proc *procedure.Procedure, cprop *absinterp.Result[lattice.CpropState]) bool {
	type resolution struct {
		from  block.ID
		v     ir.Value
		guard block.Guard
		addr  uint64
	}
	var pending []resolution

	for _, id := range proc.Arena.IDs() {
		b := proc.Arena.Get(id)
		out, ok := cprop.Out[id]
		if !ok {
			continue
		}
		for _, e := range b.Out {
			if e.Target.Resolved() {
				continue
			}
			v := e.Target.Value()
			n, ok := v.Name()
			if !ok {
				continue
			}
			cv, ok := out[n]
			if !ok {
				continue
			}
			k, isConst := cv.IsConst()
			if !isConst {
				continue
			}
			pending = append(pending, resolution{from: id, v: v, guard: e.Guard, addr: uint64(k)})
		}
	}

	for _, r := range pending {
		proc.ResolveIndirectSeed(r.from, r.v, r.guard, r.addr)
	}
	return len(pending) > 0
}

// collectCallTargets scans the IR of every block in ids for Call(constant
// k) per spec.md §4.11 step 3. The driver passes the blocks reachable from
// the entry (dom.RPO); unreachable blocks are not scanned.
func collectCallTargets(a *block.Arena, ids []block.ID) []uint64 {
	seen := map[uint64]bool{}
	var out []uint64
	for _, id := range ids {
		for _, inst := range a.Get(id).IR() {
			if inst.Op != ir.Call {
				continue
			}
			k, ok := inst.Operands[0].ConstValue()
			if !ok || seen[uint64(k)] {
				continue
			}
			seen[uint64(k)] = true
			out = append(out, uint64(k))
		}
	}
	return out
}

func procAddrName(addr uint64) string {
	return "proc_" + itohex(addr)
}

func itohex(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}
