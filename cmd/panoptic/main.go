// Command panoptic is the CLI entry point spec.md §6 describes as an
// external collaborator of the core: it reads a raw byte file, drives the
// recursive disassembly and flow-graph pipeline from a single seed
// address, and either prints a text summary (analyze) or a Graphviz DOT
// dump (dot). File-format sniffing beyond raw bytes is out of scope, per
// spec.md §1/§6.
package main

import (
	"fmt"
	"os"

	"github.com/grimdork/climate"
	"github.com/sirupsen/logrus"

	"github.com/Urethramancer/panopticon/arch/toy"
	"github.com/Urethramancer/panopticon/flowgraph"
	"github.com/Urethramancer/panopticon/procedure"
	"github.com/Urethramancer/panopticon/render"
)

// Options is the top-level flag set climate.Parse fills in: a seed address
// shared by both subcommands and the positional input file.
type Options struct {
	Seed string `short:"s" long:"seed" description:"entry seed address, hex (e.g. 0x400000)" default:"0x0"`
	Args struct {
		Command string `positional-arg-name:"command" description:"analyze | dot"`
		File    string `positional-arg-name:"file" description:"raw binary to disassemble"`
	} `positional-args:"yes"`
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	var opts Options
	if _, err := climate.Parse(&opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opts.Args.File == "" || opts.Args.Command == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [--seed 0xADDR] <analyze|dot> <file>\n", os.Args[0])
		os.Exit(1)
	}

	code, err := os.ReadFile(opts.Args.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading input file: %v\n", err)
		os.Exit(1)
	}

	seed, err := parseHex(opts.Seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --seed: %v\n", err)
		os.Exit(1)
	}

	fg := flowgraph.Analyze(toy.Build(toy.NewArch()), byteCode(code), []uint64{seed}, flowgraph.Options{})

	switch opts.Args.Command {
	case "analyze":
		printSummary(fg)
	case "dot":
		if err := render.DOT(os.Stdout, fg); err != nil {
			fmt.Fprintf(os.Stderr, "error writing dot output: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want analyze or dot)\n", opts.Args.Command)
		os.Exit(1)
	}
}

// byteCode packs a raw byte slice into the 16-bit-token procedure.Code
// shape panoptic's built-in arch/toy fixture architecture decodes against.
func byteCode(raw []byte) procedure.Code {
	tokens := make([]uint64, len(raw)/2)
	for i := range tokens {
		tokens[i] = uint64(raw[i*2])<<8 | uint64(raw[i*2+1])
	}
	return procedure.Code{Base: 0, TokenBytes: 2, Tokens: tokens}
}

func printSummary(fg *flowgraph.FlowGraph) {
	for _, addr := range fg.Procedures() {
		proc := fg.Procedure(addr)
		fmt.Printf("%s @ %#x\n", proc.Name, addr)
		for _, id := range proc.Blocks() {
			b := proc.Arena.Get(id)
			fmt.Printf("  %s\n", b.Area)
			for _, m := range b.Mnemonics {
				fmt.Printf("    %#x: %s\n", m.Area.Begin, m.Text())
			}
		}
		if callees := fg.Callees(addr); len(callees) > 0 {
			fmt.Printf("  calls:")
			for _, c := range callees {
				fmt.Printf(" %#x", c)
			}
			fmt.Println()
		}
	}
}

func parseHex(s string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "0x%x", &v)
	if err != nil {
		_, err = fmt.Sscanf(s, "%d", &v)
	}
	return v, err
}
