package ir_test

import (
	"testing"

	"cabi/internal/ir"
)

func TestDataLayout_Scalars(t *testing.T) {
	tb := ir.NewTypeBuilder()
	dl64 := ir.X86_64DataLayout()
	dl32 := ir.X86_32DataLayout()

	tests := []struct {
		name     string
		typ      *ir.Type
		dl       ir.DataLayout
		alloc    int64
		abiAlign int
	}{
		{"i1", tb.Int(1), dl64, 1, 1},
		{"i32", tb.Int(32), dl64, 4, 4},
		{"i64/64", tb.Int(64), dl64, 8, 8},
		{"i64/32", tb.Int(64), dl32, 8, 4},
		{"i128", tb.Int(128), dl64, 16, 16},
		{"double/64", tb.Double(), dl64, 8, 8},
		{"double/32", tb.Double(), dl32, 8, 4},
		{"x86_fp80/64", tb.X86FP80(), dl64, 16, 16},
		{"x86_fp80/32", tb.X86FP80(), dl32, 12, 4},
		{"ptr/64", tb.Pointer(tb.Int(8)), dl64, 8, 8},
		{"ptr/32", tb.Pointer(tb.Int(8)), dl32, 4, 4},
		{"v4f32", tb.Vector(tb.Float(), 4), dl64, 16, 16},
		{"v2i32", tb.Vector(tb.Int(32), 2), dl64, 8, 8},
	}
	for _, tc := range tests {
		if got := tc.dl.AllocSize(tc.typ); got != tc.alloc {
			t.Errorf("%s: alloc size = %d, want %d", tc.name, got, tc.alloc)
		}
		if got := tc.dl.ABIAlign(tc.typ); got != tc.abiAlign {
			t.Errorf("%s: abi align = %d, want %d", tc.name, got, tc.abiAlign)
		}
	}
}

func TestDataLayout_StructOffsets(t *testing.T) {
	tb := ir.NewTypeBuilder()
	dl := ir.X86_64DataLayout()

	s := tb.Struct(tb.Int(32), tb.Int(8), tb.Double())
	offsets := dl.StructOffsets(s)
	want := []int64{0, 4, 8}
	if len(offsets) != len(want) {
		t.Fatalf("offsets = %v, want %v", offsets, want)
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Fatalf("offsets = %v, want %v", offsets, want)
		}
	}
	if got := dl.AllocSize(s); got != 16 {
		t.Fatalf("alloc size = %d, want 16", got)
	}
}

func TestTypeBuilder_Canonicalizes(t *testing.T) {
	tb := ir.NewTypeBuilder()
	a := tb.Struct(tb.Int(64), tb.Int(64))
	b := tb.Struct(tb.Int(64), tb.Int(64))
	if a != b {
		t.Fatal("identical struct types not canonicalized")
	}
	other := ir.NewTypeBuilder()
	c := other.Struct(other.Int(64), other.Int(64))
	if !a.Equal(c) {
		t.Fatal("structural equality across builders broken")
	}
}
