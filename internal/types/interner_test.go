package types_test

import (
	"testing"

	"cabi/internal/types"
)

func TestInterner_PrimitivesAreStable(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()

	if got := in.Intern(types.MakeInt(types.Width32)); got != b.Int32 {
		t.Fatalf("re-interned i32 = %d, builtin = %d", got, b.Int32)
	}
	if got := in.Intern(types.MakeFloat(types.Width64)); got != b.Double {
		t.Fatalf("re-interned double = %d, builtin = %d", got, b.Double)
	}
	if got := in.Intern(types.MakePointer(0)); got != b.Ptr {
		t.Fatalf("re-interned ptr = %d, builtin = %d", got, b.Ptr)
	}
	if b.Int32 == b.UInt32 {
		t.Fatal("signed and unsigned 32-bit integers must not alias")
	}
}

func TestInterner_ArraysDedupe(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()

	a1 := in.Intern(types.MakeArray(b.Int32, 4))
	a2 := in.Intern(types.MakeArray(b.Int32, 4))
	a3 := in.Intern(types.MakeArray(b.Int32, 5))
	if a1 != a2 {
		t.Fatalf("identical arrays interned to %d and %d", a1, a2)
	}
	if a1 == a3 {
		t.Fatal("arrays of different length must not alias")
	}
}

func TestInterner_RecordsAreNominal(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()

	fields := []types.Field{types.MakeField(b.Int64), types.MakeField(b.Int64)}
	s1 := in.RegisterStruct(fields, false, false)
	s2 := in.RegisterStruct(fields, false, false)
	if s1 == s2 {
		t.Fatal("struct registration must yield distinct identities")
	}

	info, ok := in.StructInfo(s1)
	if !ok || len(info.Fields) != 2 {
		t.Fatalf("struct info lost: %+v ok=%v", info, ok)
	}
	if _, ok := in.UnionInfo(s1); ok {
		t.Fatal("struct id resolved as union")
	}
}

func TestInterner_BitFieldRoundTrip(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()

	s := in.RegisterStruct([]types.Field{
		types.MakeBitField(b.Int32, 3),
		types.MakeBitField(b.Int32, 0),
		types.MakeField(b.Int8),
	}, false, false)

	info, _ := in.StructInfo(s)
	if !info.Fields[0].BitField || info.Fields[0].BitWidth != 3 {
		t.Fatalf("bit-field width lost: %+v", info.Fields[0])
	}
	if !info.Fields[1].BitField || info.Fields[1].BitWidth != 0 {
		t.Fatalf("zero-width bit-field lost: %+v", info.Fields[1])
	}
	if info.Fields[2].BitField {
		t.Fatalf("plain field marked as bit-field: %+v", info.Fields[2])
	}
}
