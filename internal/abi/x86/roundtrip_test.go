package x86_test

import (
	"bytes"
	"testing"

	"cabi/internal/abi"
	"cabi/internal/abi/x86"
	"cabi/internal/ir"
	"cabi/internal/target"
	"cabi/internal/testkit"
	"cabi/internal/types"
)

// patternBytes builds a deterministic non-trivial bit pattern.
func patternBytes(seed byte, n int64) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = seed + byte(i)*37
	}
	return out
}

// runCall lowers one call through the evaluating builder: the caller
// encodes the argument patterns, the simulated callee decodes them,
// checks them bit for bit, returns retPattern, and the caller decodes
// the return value.
func runCall(t *testing.T, a abi.ABI, ft types.FunctionType, argPatterns [][]byte, retPattern []byte) {
	t.Helper()
	ti := a.TypeInfo()
	eb := testkit.NewEvalBuilder(ti.Target.DL)

	args := make([]abi.TypedValue, len(ft.Params))
	for i, p := range ft.Params {
		args[i] = abi.MakeTypedValue(eb.ConstBytes(ti.IRType(p), argPatterns[i]), p)
	}

	callBuilder := func(irArgs []ir.Value) ir.Value {
		sig, err := a.FunctionType(ft)
		if err != nil {
			t.Fatalf("FunctionType: %v", err)
		}
		if len(irArgs) != len(sig.Params) {
			t.Fatalf("encoded %d IR args, signature has %d", len(irArgs), len(sig.Params))
		}
		for i, v := range irArgs {
			if !v.Type().Equal(sig.Params[i]) {
				t.Fatalf("IR arg %d has type %s, signature says %s", i, v.Type(), sig.Params[i])
			}
		}

		encoder, err := a.CreateFunctionEncoder(eb, ft, irArgs)
		if err != nil {
			t.Fatalf("CreateFunctionEncoder: %v", err)
		}
		decoded := encoder.Arguments()
		if len(decoded) != len(ft.Params) {
			t.Fatalf("decoded %d arguments, want %d", len(decoded), len(ft.Params))
		}
		for i, v := range decoded {
			if got := testkit.Bytes(v); !bytes.Equal(got, argPatterns[i]) {
				t.Fatalf("argument %d decoded as % x, want % x", i, got, argPatterns[i])
			}
		}

		retValue := eb.ConstBytes(ti.IRType(ft.Return), retPattern)
		return encoder.ReturnValue(retValue)
	}

	result, err := a.CreateCall(eb, ft, callBuilder, args)
	if err != nil {
		t.Fatalf("CreateCall: %v", err)
	}
	if got := testkit.Bytes(result); !bytes.Equal(got, retPattern) {
		t.Fatalf("return decoded as % x, want % x", got, retPattern)
	}
}

func roundTrip(t *testing.T, triple string, retSrc string, argSrcs ...string) {
	t.Helper()
	in := types.NewInterner()
	a, err := x86.CreateABI(target.Parse(triple), in)
	if err != nil {
		t.Fatal(err)
	}
	ti := a.TypeInfo()

	params := make([]types.TypeID, len(argSrcs))
	argPatterns := make([][]byte, len(argSrcs))
	for i, src := range argSrcs {
		params[i] = mustParse(t, in, src)
		argPatterns[i] = patternBytes(byte(0x11*(i+1)), ti.Target.DL.StoreSize(ti.IRType(params[i])))
	}
	ret := mustParse(t, in, retSrc)
	retPattern := patternBytes(0xA5, ti.Target.DL.StoreSize(ti.IRType(ret)))

	ft := types.MakeFunctionType(types.CCDefault, ret, params, false)
	runCall(t, a, ft, argPatterns, retPattern)
}

func TestRoundTrip_SysV(t *testing.T) {
	const triple = "x86_64-linux-gnu"
	tests := []struct {
		name string
		ret  string
		args []string
	}{
		{"ints", "i32", []string{"i32", "i32"}},
		{"small-ints", "i8", []string{"i8", "u16", "i1"}},
		{"pair", "struct{i64,i64}", []string{"struct{i64,i64}"}},
		{"mixed-pair", "struct{i64,double}", []string{"struct{double,float,float}"}},
		{"sret", "struct{double,double,double}", []string{"struct{double,double,double}"}},
		{"long-double", "x86_fp80", []string{"x86_fp80"}},
		{"complex-double", "complex double", []string{"complex double"}},
		{"complex-float", "complex float", []string{"complex float"}},
		{"int128", "i128", []string{"i128"}},
		{"padded-struct", "void", []string{"struct{i32,i8}"}},
		{"vector", "<4 x float>", []string{"<4 x float>", "<2 x i32>"}},
		{"array", "void", []string{"[4 x i32]", "[3 x i64]"}},
		{"union", "union{i32,float}", []string{"union{i64,double}"}},
		{"empty", "void", []string{"struct{}", "i32"}},
		{"exhausted", "void", []string{
			"struct{i64,i64}", "struct{i64,i64}", "struct{i64,i64}", "struct{i64,i64}"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			roundTrip(t, triple, tc.ret, tc.args...)
		})
	}
}

func TestRoundTrip_I386(t *testing.T) {
	tests := []struct {
		name   string
		triple string
		ret    string
		args   []string
	}{
		{"ints", "i686-linux-gnu", "i32", []string{"i32", "i8"}},
		{"byval", "i686-linux-gnu", "void", []string{"struct{i32,i8}"}},
		{"expand", "i686-linux-gnu", "void", []string{"struct{i32,float}"}},
		{"sret", "i686-linux-gnu", "struct{i32,i8}", []string{"i32"}},
		{"darwin-small-ret", "i386-apple-darwin", "struct{i16,i16}", []string{}},
		{"darwin-float-ret", "i386-apple-darwin", "struct{float}", []string{}},
		{"i64-ret", "i686-linux-gnu", "i64", []string{"i64"}},
		{"double", "i686-linux-gnu", "double", []string{"double", "float"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			roundTrip(t, tc.triple, tc.ret, tc.args...)
		})
	}
}

// TestRoundTrip_VarargsPromotion checks that a variadic tail is
// promoted before encoding and that promotion is idempotent.
func TestRoundTrip_VarargsPromotion(t *testing.T) {
	in := types.NewInterner()
	a, err := x86.CreateABI(target.Parse("x86_64-linux-gnu"), in)
	if err != nil {
		t.Fatal(err)
	}
	ti := a.TypeInfo()
	b := in.Builtins()

	promoter := abi.NewTypePromoter(ti)
	ft := types.MakeFunctionType(types.CCDefault, b.Int32, []types.TypeID{b.Int32}, true)

	raw := []types.TypeID{b.Int32, b.Int8, b.Float, b.UInt16, b.Double}
	promoted := promoter.PromoteArgumentTypes(ft, raw)
	want := []types.TypeID{b.Int32, b.Int32, b.Double, b.Int32, b.Double}
	for i := range want {
		if promoted[i] != want[i] {
			t.Fatalf("promotion[%d] = %s, want %s",
				i, in.TypeString(promoted[i]), in.TypeString(want[i]))
		}
	}

	again := promoter.PromoteArgumentTypes(ft, promoted)
	for i := range promoted {
		if again[i] != promoted[i] {
			t.Fatalf("promotion not idempotent at %d", i)
		}
	}

	// End-to-end: a float vararg arrives at the call as a double.
	eb := testkit.NewEvalBuilder(ti.Target.DL)
	intVal := eb.ConstInt(ti.IRType(b.Int32), 41)
	floatVal := eb.ConstBytes(ti.IRType(b.Float), []byte{0x00, 0x00, 0x80, 0x3f}) // 1.0f

	retPattern := patternBytes(0x5A, 4)
	result, err := a.CreateCall(eb, ft, func(irArgs []ir.Value) ir.Value {
		if len(irArgs) != 2 {
			t.Fatalf("encoded %d IR args, want 2", len(irArgs))
		}
		if irArgs[1].Type().Kind() != ir.KindDouble {
			t.Fatalf("vararg float encoded as %s, want double", irArgs[1].Type())
		}
		oneAsDouble := []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}
		if got := testkit.Bytes(irArgs[1]); !bytes.Equal(got, oneAsDouble) {
			t.Fatalf("vararg promoted to % x, want % x", got, oneAsDouble)
		}
		return eb.ConstBytes(ti.IRType(b.Int32), retPattern)
	}, []abi.TypedValue{
		abi.MakeTypedValue(intVal, b.Int32),
		abi.MakeTypedValue(floatVal, b.Float),
	})
	if err != nil {
		t.Fatalf("CreateCall: %v", err)
	}
	if got := testkit.Bytes(result); !bytes.Equal(got, retPattern) {
		t.Fatalf("return decoded as % x, want % x", got, retPattern)
	}
}
