package x86_test

import (
	"testing"

	"cabi/internal/abi"
	"cabi/internal/abi/x86"
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/target"
	"cabi/internal/typeexpr"
	"cabi/internal/types"
)

func newSysV(t *testing.T) (*types.Interner, *layout.TypeInfo) {
	t.Helper()
	in := types.NewInterner()
	ti := layout.New(layout.X86_64SysV(target.Parse("x86_64-linux-gnu")), in, ir.NewTypeBuilder())
	return in, ti
}

func mustParse(t *testing.T, in *types.Interner, src string) types.TypeID {
	t.Helper()
	id, err := typeexpr.Parse(in, src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return id
}

// TestClassify_PsABIOracle pins the eightbyte class pairs against the
// psABI examples.
func TestClassify_PsABIOracle(t *testing.T) {
	tests := []struct {
		src string
		lo  x86.ArgClass
		hi  x86.ArgClass
	}{
		{"i1", x86.Integer, x86.NoClass},
		{"i8", x86.Integer, x86.NoClass},
		{"i32", x86.Integer, x86.NoClass},
		{"u64", x86.Integer, x86.NoClass},
		{"i128", x86.Integer, x86.Integer},
		{"ptr", x86.Integer, x86.NoClass},
		{"float", x86.SSE, x86.NoClass},
		{"double", x86.SSE, x86.NoClass},
		{"x86_fp80", x86.X87, x86.X87Up},
		{"fp128", x86.SSE, x86.SSEUp},
		{"complex float", x86.SSE, x86.NoClass},
		{"complex double", x86.SSE, x86.SSE},
		{"complex x86_fp80", x86.ComplexX87, x86.NoClass},
		{"struct{}", x86.NoClass, x86.NoClass},
		{"struct{i32,i32}", x86.Integer, x86.NoClass},
		{"struct{i64,i64}", x86.Integer, x86.Integer},
		{"struct{float,float}", x86.SSE, x86.NoClass},
		{"struct{double,double}", x86.SSE, x86.SSE},
		{"struct{i32,float}", x86.Integer, x86.NoClass},
		{"struct{float,i32}", x86.Integer, x86.NoClass},
		{"struct{double,i32}", x86.SSE, x86.Integer},
		{"struct{i64,double}", x86.Integer, x86.SSE},
		{"struct{double,double,double}", x86.Memory, x86.Memory},
		{"struct{x86_fp80}", x86.X87, x86.X87Up},
		{"union{i32,float}", x86.Integer, x86.NoClass},
		{"union{i64,double}", x86.Integer, x86.NoClass},
		{"[4 x i32]", x86.Integer, x86.Integer},
		{"[2 x float]", x86.SSE, x86.NoClass},
		{"[4 x float]", x86.SSE, x86.SSE},
		{"[3 x i64]", x86.Memory, x86.Memory},
		{"<4 x float>", x86.SSE, x86.SSEUp},
		{"<2 x i64>", x86.SSE, x86.SSEUp},
		{"<2 x i32>", x86.SSE, x86.NoClass},
		{"<8 x float>", x86.Memory, x86.Memory},
		{"struct{i32,i32:3}", x86.Integer, x86.NoClass},
	}

	in, ti := newSysV(t)
	classifier := x86.NewClassifier(ti)
	for _, tc := range tests {
		id := mustParse(t, in, tc.src)
		got := classifier.Classify(id, true)
		if got.Lo != tc.lo || got.Hi != tc.hi {
			t.Errorf("%s: classified (%s, %s), want (%s, %s)",
				tc.src, got.Lo, got.Hi, tc.lo, tc.hi)
		}
	}
}

func lowerSysV(t *testing.T, in *types.Interner, a abi.ABI, cc types.CallingConvention,
	ret string, params ...string) (ir.FunctionType, abi.AttrList, types.FunctionType) {
	t.Helper()
	paramIDs := make([]types.TypeID, len(params))
	for i, p := range params {
		paramIDs[i] = mustParse(t, in, p)
	}
	ft := types.MakeFunctionType(cc, mustParse(t, in, ret), paramIDs, false)
	sig, err := a.FunctionType(ft)
	if err != nil {
		t.Fatalf("FunctionType: %v", err)
	}
	attrs, err := a.Attributes(ft, ft.Params, abi.AttrList{})
	if err != nil {
		t.Fatalf("Attributes: %v", err)
	}
	return sig, attrs, ft
}

// TestSysVSignatures pins concrete x86-64 signatures end to end.
func TestSysVSignatures(t *testing.T) {
	in, _ := newSysV(t)
	a := x86.NewX86_64ABI(target.Parse("x86_64-linux-gnu"), in)

	t.Run("int(int,int)", func(t *testing.T) {
		sig, attrs, _ := lowerSysV(t, in, a, types.CCDefault, "i32", "i32", "i32")
		if sig.String() != "i32 (i32, i32)" {
			t.Fatalf("signature = %s", sig)
		}
		if !attrs.Ret.Empty() || !attrs.Args[0].Empty() || !attrs.Args[1].Empty() {
			t.Fatalf("unexpected attributes: %s", attrs)
		}
	})

	t.Run("pair(pair)", func(t *testing.T) {
		sig, _, _ := lowerSysV(t, in, a, types.CCDefault, "struct{i64,i64}", "struct{i64,i64}")
		if sig.String() != "{ i64, i64 } (i64, i64)" {
			t.Fatalf("signature = %s", sig)
		}
	})

	t.Run("three-doubles-sret", func(t *testing.T) {
		sig, attrs, _ := lowerSysV(t, in, a, types.CCDefault, "struct{double,double,double}")
		if !sig.Return.IsVoid() || len(sig.Params) != 1 || !sig.Params[0].IsPointer() {
			t.Fatalf("signature = %s", sig)
		}
		sret := attrs.Args[0]
		if !sret.Has(abi.AttrStructRet) || !sret.Has(abi.AttrNoAlias) {
			t.Fatalf("sret attributes = %q", sret)
		}
	})

	t.Run("long-double", func(t *testing.T) {
		sig, _, _ := lowerSysV(t, in, a, types.CCDefault, "x86_fp80", "x86_fp80")
		if sig.String() != "x86_fp80 (x86_fp80)" {
			t.Fatalf("signature = %s", sig)
		}
	})

	t.Run("complex-double", func(t *testing.T) {
		sig, _, _ := lowerSysV(t, in, a, types.CCDefault, "complex double", "complex double")
		if sig.String() != "{ double, double } (double, double)" {
			t.Fatalf("signature = %s", sig)
		}
	})

	t.Run("small-int-extend", func(t *testing.T) {
		sig, attrs, _ := lowerSysV(t, in, a, types.CCDefault, "i8", "i8", "u16", "i1")
		if sig.String() != "i8 (i8, u16, i1)" && sig.String() != "i8 (i8, i16, i1)" {
			t.Fatalf("signature = %s", sig)
		}
		if !attrs.Ret.Has(abi.AttrSExt) {
			t.Fatalf("return not signext: %s", attrs)
		}
		if !attrs.Args[0].Has(abi.AttrSExt) || !attrs.Args[1].Has(abi.AttrZExt) || !attrs.Args[2].Has(abi.AttrZExt) {
			t.Fatalf("argument extension attrs wrong: %s", attrs)
		}
	})

	t.Run("int128", func(t *testing.T) {
		sig, _, _ := lowerSysV(t, in, a, types.CCDefault, "void", "i128")
		if sig.String() != "void (i64, i64)" {
			t.Fatalf("signature = %s", sig)
		}
	})

	t.Run("complex-long-double", func(t *testing.T) {
		sig, attrs, _ := lowerSysV(t, in, a, types.CCDefault, "complex x86_fp80", "complex x86_fp80")
		if sig.Return.String() != "{ x86_fp80, x86_fp80 }" {
			t.Fatalf("return = %s", sig.Return)
		}
		if len(sig.Params) != 1 || !sig.Params[0].IsPointer() {
			t.Fatalf("params = %s", sig)
		}
		if !attrs.Args[0].Has(abi.AttrByVal) || attrs.Args[0].Align != 16 {
			t.Fatalf("byval attrs = %q", attrs.Args[0])
		}
	})

	t.Run("mixed-eightbytes", func(t *testing.T) {
		sig, _, _ := lowerSysV(t, in, a, types.CCDefault, "void", "struct{double,i32}", "struct{i64,double}")
		if sig.String() != "void (double, i32, i64, double)" {
			t.Fatalf("signature = %s", sig)
		}
	})

	t.Run("vector", func(t *testing.T) {
		sig, _, _ := lowerSysV(t, in, a, types.CCDefault, "<4 x float>", "<4 x float>")
		if sig.String() != "<4 x float> (<4 x float>)" {
			t.Fatalf("signature = %s", sig)
		}
	})
}

// TestSysVRegisterBudget exercises integer register exhaustion.
func TestSysVRegisterBudget(t *testing.T) {
	in, _ := newSysV(t)
	a := x86.NewX86_64ABI(target.Parse("x86_64-linux-gnu"), in)

	t.Run("pairs-exhaust-to-byval", func(t *testing.T) {
		// Four {i64,i64} pairs need 8 integer registers; only the
		// first three fit, the fourth spills to a hidden byval copy.
		sig, attrs, _ := lowerSysV(t, in, a, types.CCDefault, "void",
			"struct{i64,i64}", "struct{i64,i64}", "struct{i64,i64}", "struct{i64,i64}")
		if len(sig.Params) != 7 {
			t.Fatalf("signature = %s", sig)
		}
		if !sig.Params[6].IsPointer() {
			t.Fatalf("exhausted argument not indirect: %s", sig)
		}
		if !attrs.Args[6].Has(abi.AttrByVal) || attrs.Args[6].Align != 8 {
			t.Fatalf("byval attrs = %q", attrs.Args[6])
		}
	})

	t.Run("scalars-stay-direct-on-stack", func(t *testing.T) {
		args := make([]string, 8)
		for i := range args {
			args[i] = "i64"
		}
		sig, _, _ := lowerSysV(t, in, a, types.CCDefault, "void", args...)
		for i, p := range sig.Params {
			if !p.IsInt() {
				t.Fatalf("param %d = %s, want i64", i, p)
			}
		}
	})

	t.Run("sret-consumes-a-register", func(t *testing.T) {
		// Indirect return eats rdi: three pairs no longer fit.
		sig, _, _ := lowerSysV(t, in, a, types.CCDefault, "struct{double,double,double}",
			"struct{i64,i64}", "struct{i64,i64}", "struct{i64,i64}")
		last := sig.Params[len(sig.Params)-1]
		if !last.IsPointer() {
			t.Fatalf("third pair should spill after sret: %s", sig)
		}
	})
}

// TestSlotCoverage checks the mapping partition invariant over a
// battery of signatures.
func TestSlotCoverage(t *testing.T) {
	in, ti := newSysV(t)
	classifier := x86.NewClassifier(ti)

	signatures := [][]string{
		{"void"},
		{"i32", "i32", "i32"},
		{"struct{i64,i64}", "struct{i64,i64}", "double", "i8"},
		{"struct{double,double,double}", "i32", "struct{double,double,double}"},
		{"complex double", "complex double", "x86_fp80"},
		{"struct{}", "struct{}", "i64"},
		{"<4 x float>", "<4 x float>", "<8 x float>"},
		{"i128", "i128", "i128", "i128", "i128"},
	}

	for _, sig := range signatures {
		ret := mustParse(t, in, sig[0])
		params := make([]types.TypeID, len(sig)-1)
		for i, s := range sig[1:] {
			params[i] = mustParse(t, in, s)
		}
		ft := types.MakeFunctionType(types.CCDefault, ret, params, false)
		infos := classifier.ClassifyFunctionType(ft, ft.Params)
		m := abi.GetFunctionIRMapping(ti, infos)

		seen := make(map[int]bool)
		claim := func(idx int) {
			if idx < 0 || idx >= m.TotalIRArgs() {
				t.Fatalf("%v: index %d outside [0,%d)", sig, idx, m.TotalIRArgs())
			}
			if seen[idx] {
				t.Fatalf("%v: index %d claimed twice", sig, idx)
			}
			seen[idx] = true
		}

		if m.HasStructRetArg() {
			claim(m.StructRetArgIndex())
		}
		for argNo := range m.Arguments() {
			if m.HasPaddingArg(argNo) {
				claim(m.PaddingArgIndex(argNo))
			}
			first, count := m.IRArgRange(argNo)
			for i := 0; i < count; i++ {
				claim(first + i)
			}
		}
		if len(seen) != m.TotalIRArgs() {
			t.Fatalf("%v: %d slots claimed of %d", sig, len(seen), m.TotalIRArgs())
		}

		// Signature/attribute agreement: same slot count, attribute
		// indices in range by construction.
		irFT := abi.GetFunctionType(ti, ft, &m)
		if len(irFT.Params) != m.TotalIRArgs() {
			t.Fatalf("%v: IR signature has %d params, mapping %d", sig, len(irFT.Params), m.TotalIRArgs())
		}
		attrs := abi.GetAttributes(ti, &m, abi.AttrList{})
		if len(attrs.Args) != m.TotalIRArgs() {
			t.Fatalf("%v: attribute list has %d slots, mapping %d", sig, len(attrs.Args), m.TotalIRArgs())
		}
	}
}
