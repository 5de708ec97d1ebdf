package decoder

import (
	"github.com/sirupsen/logrus"
)

// Disassembler holds the rule library for one architecture: a set of
// top-level alternatives tried in order, and an optional default action run
// when every alternative fails (spec.md §4.4).
type Disassembler struct {
	arch   Architecture
	rules  []Rule
	def    ActionFunc
	hasDef bool
}

// New returns a Disassembler bound to arch. Add rules with AddRule and,
// optionally, a fallback with SetDefault.
func New(arch Architecture) *Disassembler {
	return &Disassembler{arch: arch}
}

// AddRule appends a top-level alternative; alternatives are tried in the
// order they were added.
func (d *Disassembler) AddRule(r Rule) {
	d.rules = append(d.rules, r)
}

// SetDefault installs the fallback action run when no rule matches. It
// consumes exactly one token and typically emits an "unknown" mnemonic.
func (d *Disassembler) SetDefault(fn ActionFunc) {
	d.def = fn
	d.hasDef = true
}

// TryMatch attempts every top-level rule in order against tokens[pos:],
// seeded at address seed, per the spec.md §4.4 matcher contract: on
// success it returns the position just past the last consumed token and
// the updated semantic state; on failure (including exhausting the default
// action) it returns ok=false and the caller's state is untouched.
func (d *Disassembler) TryMatch(tokens []uint64, pos int, seed uint64) (next int, state *SemanticState, ok bool) {
	seedState := newState(d.arch, seed)
	for _, r := range d.rules {
		if np, ns, matched := matchRule(r, tokens, pos, seedState); matched {
			return np, ns, true
		}
	}
	if d.hasDef {
		if pos >= len(tokens) {
			return pos, nil, false
		}
		ns := seedState.clone()
		ns.Tokens = append(ns.Tokens, tokens[pos])
		if err := d.def(ns); err != nil {
			logrus.WithFields(logrus.Fields{"addr": seed, "kind": "default-action"}).WithError(err).Warn("decoder: default action failed")
			return pos, nil, false
		}
		return pos + 1, ns, true
	}
	return pos, nil, false
}

// matchRule is the iterative (non-coroutine) matcher over the Rule sum
// type, per DESIGN NOTES §9.
func matchRule(r Rule, tokens []uint64, pos int, in *SemanticState) (next int, out *SemanticState, ok bool) {
	switch r.kind {
	case kindPattern:
		if pos >= len(tokens) {
			return pos, nil, false
		}
		extracted, matched := r.pat.match(tokens[pos])
		if !matched {
			return pos, nil, false
		}
		ns := in.clone()
		ns.Tokens = append(ns.Tokens, tokens[pos])
		for _, c := range extracted {
			ns.appendCapture(c.name, c.value, c.bitcount)
		}
		return pos + 1, ns, true

	case kindConcat:
		p1, s1, ok1 := matchRule(*r.a, tokens, pos, in)
		if !ok1 {
			return pos, nil, false
		}
		p2, s2, ok2 := matchRule(*r.b, tokens, p1, s1)
		if !ok2 {
			return pos, nil, false
		}
		return p2, s2, true

	case kindAlt:
		for _, alt := range r.alts {
			if np, ns, matched := matchRule(alt, tokens, pos, in); matched {
				return np, ns, true
			}
		}
		return pos, nil, false

	case kindOpt:
		if np, ns, matched := matchRule(*r.inner, tokens, pos, in); matched {
			return np, ns, true
		}
		return pos, in.clone(), true

	case kindAction:
		ns := in.clone()
		if err := r.action(ns); err != nil {
			logrus.WithError(err).Warn("decoder: semantic action failed")
			return pos, nil, false
		}
		return pos, ns, true

	default:
		return pos, nil, false
	}
}
