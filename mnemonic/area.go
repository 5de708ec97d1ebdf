// Package mnemonic holds the byte-range arithmetic (Area) and the decoded
// instruction record (Mnemonic) that the decoder package emits and the
// block/procedure packages assemble into basic blocks.
package mnemonic

import "fmt"

// Area is a half-open byte range [Begin, End). All containment and overlap
// tests follow Begin <= addr < End.
type Area struct {
	Begin, End uint64
}

// NewArea builds an Area, panicking if end < begin — a malformed Area is a
// programmer error in every caller, never a recoverable condition.
func NewArea(begin, end uint64) Area {
	if end < begin {
		panic(fmt.Sprintf("mnemonic: area end %d before begin %d", end, begin))
	}
	return Area{Begin: begin, End: end}
}

// Size returns the number of bytes the area spans.
func (a Area) Size() uint64 { return a.End - a.Begin }

// LastByte returns the address of the area's final included byte. Calling
// this on an empty area is a programmer error.
func (a Area) LastByte() uint64 {
	if a.Size() == 0 {
		panic("mnemonic: LastByte of empty area")
	}
	return a.End - 1
}

// ContainsAddress reports whether addr falls within [Begin, End).
func (a Area) ContainsAddress(addr uint64) bool {
	return addr >= a.Begin && addr < a.End
}

// ContainsArea reports whether o is entirely within a.
func (a Area) ContainsArea(o Area) bool {
	return o.Begin >= a.Begin && o.End <= a.End
}

// Overlaps reports whether a and o share any byte.
func (a Area) Overlaps(o Area) bool {
	return a.Begin < o.End && o.Begin < a.End
}

func (a Area) String() string {
	return fmt.Sprintf("[%#x, %#x)", a.Begin, a.End)
}
