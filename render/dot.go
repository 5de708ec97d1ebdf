// Package render implements the one concrete, read-only consumer of the
// core's public iteration interface spec.md §6 promises external
// renderers: a Graphviz DOT writer. It never mutates a FlowGraph, a
// Procedure or a Block — it only reads Procedures()/Procedure()/CallGraph(),
// Blocks(), and each block's Mnemonics and Out edges.
package render

import (
	"fmt"
	"io"

	"github.com/Urethramancer/panopticon/block"
	"github.com/Urethramancer/panopticon/flowgraph"
)

// DOT writes a Graphviz DOT dump of fg to w: one cluster per procedure and
// one node per block, labeled with its mnemonic listing, plus one edge per
// ctrans (guard included when it is not the always-true empty guard).
// Unresolved (indirect) edges are rendered as a dashed edge into a
// synthetic "unresolved" node so that a still-partial CFG remains
// drawable mid-analysis.
func DOT(w io.Writer, fg *flowgraph.FlowGraph) error {
	bw := &errWriter{w: w}
	bw.printf("digraph panopticon {\n")
	bw.printf("\tnode [shape=box fontname=monospace];\n")

	for _, addr := range fg.Procedures() {
		proc := fg.Procedure(addr)
		if proc == nil {
			continue
		}
		bw.printf("\tsubgraph cluster_%s {\n", clusterID(addr))
		bw.printf("\t\tlabel=%q;\n", proc.Name)

		ids := proc.Blocks()
		for _, id := range ids {
			writeBlockNode(bw, addr, proc.Arena.Get(id))
		}
		bw.printf("\t}\n")

		for _, id := range ids {
			writeBlockEdges(bw, addr, proc.Arena.Get(id))
		}
	}

	for caller, callees := range fg.CallGraph() {
		for _, callee := range callees {
			bw.printf("\tcall_%s -> call_%s [style=dotted color=gray];\n", hexAddr(caller), hexAddr(callee))
		}
	}

	bw.printf("}\n")
	return bw.err
}

func writeBlockNode(bw *errWriter, procAddr uint64, b *block.Block) {
	label := fmt.Sprintf("%s\\l", b.Area.String())
	for _, m := range b.Mnemonics {
		label += fmt.Sprintf("%s: %s\\l", hexAddr(m.Area.Begin), m.Text())
	}
	bw.printf("\t\t%s [label=%q];\n", nodeID(procAddr, b.ID), label)
}

func writeBlockEdges(bw *errWriter, procAddr uint64, b *block.Block) {
	for i, e := range b.Out {
		if e.Target.Resolved() {
			bw.printf("\t%s -> %s", nodeID(procAddr, b.ID), nodeID(procAddr, e.Target.Block()))
		} else {
			unresolvedID := fmt.Sprintf("%s_unresolved_%d", nodeID(procAddr, b.ID), i)
			bw.printf("\t%s [label=%q shape=diamond style=dashed];\n", unresolvedID, e.Target.Value().String())
			bw.printf("\t%s -> %s [style=dashed]", nodeID(procAddr, b.ID), unresolvedID)
		}
		if !e.Guard.IsTrue() {
			bw.printf(" [label=%q]", e.Guard.String())
		}
		bw.printf(";\n")
	}
}

func nodeID(procAddr uint64, id block.ID) string {
	return fmt.Sprintf("p%s_b%d", hexAddr(procAddr), id)
}

func clusterID(procAddr uint64) string {
	return hexAddr(procAddr)
}

func hexAddr(addr uint64) string {
	return fmt.Sprintf("%x", addr)
}

// errWriter lets the repeated Fprintf calls above skip individual error
// checks; the first write error is latched and returned once from DOT.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
