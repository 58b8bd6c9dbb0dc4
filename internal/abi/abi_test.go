package abi_test

import (
	"errors"
	"testing"

	"cabi/internal/abi"
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/target"
	"cabi/internal/types"
)

func newInfo(t *testing.T) (*types.Interner, *layout.TypeInfo) {
	t.Helper()
	in := types.NewInterner()
	ti := layout.New(layout.X86_64SysV(target.Parse("x86_64-linux-gnu")), in, ir.NewTypeBuilder())
	return in, ti
}

func TestArgInfo_AccessorsGuardKinds(t *testing.T) {
	in, _ := newInfo(t)
	b := in.Builtins()

	direct := abi.GetDirect(b.Int32)
	if direct.CoerceType() != b.Int32 || !direct.CanBeFlattened() {
		t.Fatalf("direct = %s", direct)
	}

	mustPanic := func(name string, f func()) {
		t.Helper()
		defer func() {
			r := recover()
			if r == nil {
				t.Fatalf("%s did not panic", name)
			}
			var e *abi.Error
			if !errors.As(r.(error), &e) || e.Kind != abi.ErrInvariant {
				t.Fatalf("%s panicked with %v", name, r)
			}
		}()
		f()
	}

	mustPanic("CoerceType on indirect", func() { abi.GetIndirect(8, true).CoerceType() })
	mustPanic("ExpandType on direct", func() { direct.ExpandType() })
	mustPanic("IndirectAlign on ignore", func() { abi.GetIgnore().IndirectAlign() })
	mustPanic("SRetAfterThis on direct", func() { direct.WithSRetAfterThis() })
}

func TestMapping_SRetAfterThis(t *testing.T) {
	in, ti := newInfo(t)
	b := in.Builtins()

	// Indirect return swapped behind a `this` pointer: this at 0,
	// sret at 1.
	infos := []abi.ArgInfo{
		abi.GetIndirect(0, false).WithSRetAfterThis(),
		abi.GetDirect(b.Ptr), // this
		abi.GetDirect(b.Int32),
	}
	m := abi.GetFunctionIRMapping(ti, infos)

	if !m.HasStructRetArg() || m.StructRetArgIndex() != 1 {
		t.Fatalf("sret index = %d, want 1", m.StructRetArgIndex())
	}
	first, count := m.IRArgRange(0)
	if first != 0 || count != 1 {
		t.Fatalf("this at (%d,%d), want (0,1)", first, count)
	}
	first, count = m.IRArgRange(1)
	if first != 2 || count != 1 {
		t.Fatalf("arg after sret at (%d,%d), want (2,1)", first, count)
	}
	if m.TotalIRArgs() != 3 {
		t.Fatalf("total = %d, want 3", m.TotalIRArgs())
	}
}

func TestMapping_InallocaSlotIsReservedButUnset(t *testing.T) {
	in, ti := newInfo(t)
	b := in.Builtins()

	m := abi.GetFunctionIRMapping(ti, []abi.ArgInfo{abi.GetIgnore(), abi.GetDirect(b.Int32)})
	if m.HasInallocaArg() {
		t.Fatal("inalloca slot unexpectedly assigned")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("InallocaArgIndex did not panic")
		}
	}()
	m.InallocaArgIndex()
}

func TestExpansion(t *testing.T) {
	in, ti := newInfo(t)
	b := in.Builtins()

	inner := in.RegisterStruct([]types.Field{
		types.MakeField(b.Float),
		types.MakeField(b.Float),
	}, false, false)
	outer := in.RegisterStruct([]types.Field{
		types.MakeField(in.Intern(types.MakeArray(b.Int32, 3))),
		types.MakeField(inner),
		types.MakeField(in.Intern(types.MakeComplex(b.Double))),
	}, false, false)

	if got := abi.GetExpansionSize(ti, outer); got != 7 {
		t.Fatalf("expansion size = %d, want 7", got)
	}
	irTypes := abi.GetExpandedTypes(ti, outer, nil)
	if len(irTypes) != 7 {
		t.Fatalf("expanded types = %v", irTypes)
	}
	want := []string{"i32", "i32", "i32", "float", "float", "double", "double"}
	for i, w := range want {
		if irTypes[i].String() != w {
			t.Fatalf("expanded[%d] = %s, want %s", i, irTypes[i], w)
		}
	}

	flex := in.RegisterStruct([]types.Field{types.MakeField(b.Int32)}, false, true)
	func() {
		defer func() {
			r := recover()
			var e *abi.Error
			if r == nil || !errors.As(r.(error), &e) || e.Kind != abi.ErrUnsupported {
				t.Fatalf("flexible array expansion panicked with %v", r)
			}
		}()
		abi.GetExpansionSize(ti, flex)
	}()

	bitfields := in.RegisterStruct([]types.Field{
		types.MakeBitField(b.Int32, 0),
		types.MakeBitField(b.Int32, 5),
	}, false, false)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("bit-field expansion did not panic")
			}
		}()
		abi.GetExpansionSize(ti, bitfields)
	}()
}

func TestAttrList(t *testing.T) {
	l := abi.NewAttrList(2)
	l.Arg(0).Add(abi.AttrByVal)
	l.Arg(0).Align = 8
	l.Ret.Add(abi.AttrSExt)
	l.Fn.Add(abi.AttrReadOnly)
	l.Fn.Remove(abi.AttrReadOnly)

	if !l.Args[0].Has(abi.AttrByVal) || l.Args[0].Align != 8 {
		t.Fatalf("arg attrs = %q", l.Args[0])
	}
	if l.Fn.Has(abi.AttrReadOnly) {
		t.Fatal("removed attribute still present")
	}
	if got := l.Args[0].String(); got != "byval align 8" {
		t.Fatalf("rendering = %q", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("out-of-range Arg did not panic")
		}
	}()
	l.Arg(2)
}
