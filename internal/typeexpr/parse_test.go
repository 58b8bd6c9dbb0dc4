package typeexpr_test

import (
	"testing"

	"cabi/internal/typeexpr"
	"cabi/internal/types"
)

func TestParse_RoundTripsThroughPrinter(t *testing.T) {
	tests := []string{
		"void",
		"i1",
		"i32",
		"u64",
		"i128",
		"half",
		"float",
		"double",
		"x86_fp80",
		"fp128",
		"ptr",
		"[4 x i32]",
		"<2 x i64>",
		"complex double",
		"struct{i64,i64}",
		"struct{i32,i32:3}",
		"union{i32,float}",
		"struct{[2 x double],ptr}",
	}
	in := types.NewInterner()
	for _, src := range tests {
		id, err := typeexpr.Parse(in, src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		if got := in.TypeString(id); got != src {
			t.Errorf("Parse(%q) prints as %q", src, got)
		}
	}
}

func TestParse_Structure(t *testing.T) {
	in := types.NewInterner()

	id, err := typeexpr.Parse(in, "packed struct{i8,i32}")
	if err != nil {
		t.Fatal(err)
	}
	info, ok := in.StructInfo(id)
	if !ok || !info.Packed || len(info.Fields) != 2 {
		t.Fatalf("packed struct parsed as %+v", info)
	}

	id, err = typeexpr.Parse(in, "struct{i32,...}")
	if err != nil {
		t.Fatal(err)
	}
	info, _ = in.StructInfo(id)
	if !info.FlexibleArray || len(info.Fields) != 1 {
		t.Fatalf("flexible struct parsed as %+v", info)
	}

	if _, err := typeexpr.Parse(in, "struct{i32"); err == nil {
		t.Error("unterminated struct accepted")
	}
	if _, err := typeexpr.Parse(in, "i12"); err == nil {
		t.Error("i12 accepted")
	}
	if _, err := typeexpr.Parse(in, "complex i32"); err == nil {
		t.Error("complex i32 accepted")
	}
	if _, err := typeexpr.Parse(in, "i32 junk"); err == nil {
		t.Error("trailing junk accepted")
	}
}
