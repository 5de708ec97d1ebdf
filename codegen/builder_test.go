package codegen

import (
	"testing"

	"github.com/Urethramancer/panopticon/ir"
)

type stubArch struct {
	widths map[string]uint
	temp   int
}

func (a *stubArch) TokenWidth() uint { return 16 }

func (a *stubArch) Valid(name string) bool {
	_, ok := a.widths[name]
	return ok
}

func (a *stubArch) Width(name string) uint { return a.widths[name] }

func (a *stubArch) FreshTemp() string {
	a.temp++
	return "tmp"
}

func newStub() *stubArch {
	return &stubArch{widths: map[string]uint{"d0": 32, "d1": 32}}
}

func TestBuilderNamedAddInfersArchitecturalWidth(t *testing.T) {
	arch := newStub()
	b := New(arch)
	dest := b.Add("add", "d0", b.Ref("d1"), ir.Const(4, 32))
	if b.Err() != nil {
		t.Fatalf("unexpected error: %v", b.Err())
	}
	if dest.Width() != 32 {
		t.Fatalf("dest width = %d, want 32", dest.Width())
	}
	if len(b.Instructions()) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(b.Instructions()))
	}
}

func TestBuilderAnonInfersFromOperands(t *testing.T) {
	arch := newStub()
	b := New(arch)
	dest := b.AddAnon("add", ir.Const(1, 16), ir.Const(2, 16))
	if b.Err() != nil {
		t.Fatalf("unexpected error: %v", b.Err())
	}
	if dest.Width() != 16 {
		t.Fatalf("dest width = %d, want 16", dest.Width())
	}
}

func TestBuilderArchitecturalMismatchIsFatal(t *testing.T) {
	arch := newStub()
	b := New(arch)
	b.Add("add", "d0", ir.Const(1, 16), ir.Const(2, 16))
	if b.Err() == nil {
		t.Fatal("expected width mismatch against architectural declaration for d0")
	}
}

func TestBuilderSliceInfersDestWidth(t *testing.T) {
	arch := newStub()
	b := New(arch)
	dest := b.SliceAnon("slice", b.Ref("d0"), ir.Const(0, 8), ir.Const(7, 8))
	if b.Err() != nil {
		t.Fatalf("unexpected error: %v", b.Err())
	}
	if dest.Width() != 8 {
		t.Fatalf("dest width = %d, want 8", dest.Width())
	}
}

func TestBuilderConcatSumsWidths(t *testing.T) {
	arch := newStub()
	b := New(arch)
	dest := b.ConcatAnon("concat", ir.Const(1, 8), ir.Const(2, 8))
	if b.Err() != nil {
		t.Fatalf("unexpected error: %v", b.Err())
	}
	if dest.Width() != 16 {
		t.Fatalf("dest width = %d, want 16", dest.Width())
	}
}

func TestBuilderUExtUsesHintAsDestWidth(t *testing.T) {
	arch := newStub()
	b := New(arch)
	dest := b.UExtAnon("uext", ir.Const(32, 32), ir.Const(7, 8))
	if b.Err() != nil {
		t.Fatalf("unexpected error: %v", b.Err())
	}
	if dest.Width() != 32 {
		t.Fatalf("dest width = %d, want 32", dest.Width())
	}
}

func TestBuilderErrorLatchesAndAbortsCleanly(t *testing.T) {
	arch := newStub()
	b := New(arch)
	b.Add("add", "d0", ir.Const(1, 16), ir.Const(2, 16))
	if b.Err() == nil {
		t.Fatal("expected initial error")
	}
	before := len(b.Instructions())
	b.AddAnon("add", ir.Const(1, 16), ir.Const(2, 16))
	if len(b.Instructions()) != before {
		t.Fatal("builder should not append further instructions once latched")
	}
}
