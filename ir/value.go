package ir

import "fmt"

// Kind tags which alternative of the Value sum type is populated.
type Kind uint8

const (
	// KindConstant is an immediate value with a fixed width.
	KindConstant Kind = iota
	// KindVariable names a (possibly SSA-subscripted) storage location.
	KindVariable
	// KindUndefined carries only a width; its bits are unspecified.
	KindUndefined
)

func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "const"
	case KindVariable:
		return "var"
	case KindUndefined:
		return "undef"
	default:
		return "invalid"
	}
}

// Value is a tagged sum of Constant, Variable and Undefined, per spec.md §3.
// A zero Width is legal only on an intermediate value mid-construction; any
// Value reachable from a finished Instruction has Width() > 0.
type Value struct {
	kind  Kind
	width uint

	// populated when kind == KindConstant
	cval uint32

	// populated when kind == KindVariable
	name Name
}

// Const constructs a Constant value of the given width.
func Const(v uint32, width uint) Value {
	return Value{kind: KindConstant, cval: v, width: width}
}

// Var constructs a Variable value referring to name.
func Var(name Name, width uint) Value {
	return Value{kind: KindVariable, name: name, width: width}
}

// Undef constructs an Undefined value of the given width.
func Undef(width uint) Value {
	return Value{kind: KindUndefined, width: width}
}

// Kind reports which alternative this value holds.
func (v Value) Kind() Kind { return v.kind }

// Width returns the value's bit-width.
func (v Value) Width() uint { return v.width }

// WithWidth returns a copy of v with its width replaced; used by the code
// generator while resolving unspecified widths during construction.
func (v Value) WithWidth(w uint) Value {
	v.width = w
	return v
}

// IsConstant reports whether v holds a Constant.
func (v Value) IsConstant() bool { return v.kind == KindConstant }

// IsVariable reports whether v holds a Variable.
func (v Value) IsVariable() bool { return v.kind == KindVariable }

// IsUndefined reports whether v holds an Undefined.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// ConstValue returns the constant's value and whether v is a Constant.
func (v Value) ConstValue() (uint32, bool) {
	if v.kind != KindConstant {
		return 0, false
	}
	return v.cval, true
}

// Name returns the variable's name and whether v is a Variable.
func (v Value) Name() (Name, bool) {
	if v.kind != KindVariable {
		return Name{}, false
	}
	return v.name, true
}

// String renders the value for diagnostics and mnemonic printing.
func (v Value) String() string {
	switch v.kind {
	case KindConstant:
		return fmt.Sprintf("0x%x:%d", v.cval, v.width)
	case KindVariable:
		return v.name.String()
	case KindUndefined:
		return fmt.Sprintf("undef:%d", v.width)
	default:
		return "?"
	}
}

// Equal reports structural equality, including SSA subscripts.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.width != o.width {
		return false
	}
	switch v.kind {
	case KindConstant:
		return v.cval == o.cval
	case KindVariable:
		return v.name == o.name
	default:
		return true
	}
}
