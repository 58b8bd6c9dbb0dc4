package x86

import (
	"cabi/internal/abi"
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/target"
	"cabi/internal/types"
)

// X86_32Options configures the i386 pipeline.
type X86_32Options struct {
	// NumRegisterParameters is the regparm(N) register count applied
	// to conventions without their own register file.
	NumRegisterParameters int64
}

// X86_32ABI is the i386 pipeline (cdecl, stdcall, fastcall, thiscall,
// pascal, vectorcall) with the Darwin/Windows carve-outs chosen by the
// triple.
type X86_32ABI struct {
	ti     *layout.TypeInfo
	triple target.Triple
	opts   X86_32Options
}

// NewX86_32ABI builds the i386 pipeline for the given triple.
func NewX86_32ABI(triple target.Triple, typesIn *types.Interner, opts X86_32Options) *X86_32ABI {
	return &X86_32ABI{
		ti:     layout.New(layout.X86_32(triple), typesIn, ir.NewTypeBuilder()),
		triple: triple,
		opts:   opts,
	}
}

// Name implements abi.ABI.
func (a *X86_32ABI) Name() string { return "x86" }

// TypeInfo implements abi.ABI.
func (a *X86_32ABI) TypeInfo() *layout.TypeInfo { return a.ti }

// CallingConvention implements abi.ABI.
func (a *X86_32ABI) CallingConvention(cc types.CallingConvention) (ir.CallingConv, error) {
	switch cc {
	case types.CCDefault, types.CCCDecl, types.CCCppDefault:
		return ir.CallConvC, nil
	case types.CCStdCall, types.CCPascal:
		// Pascal differs from stdcall only in argument order at the
		// source level; the IR convention is the same.
		return ir.CallConvX86StdCall, nil
	case types.CCFastCall:
		return ir.CallConvX86FastCall, nil
	case types.CCThisCall:
		return ir.CallConvX86ThisCall, nil
	case types.CCVectorCall:
		return ir.CallConvX86VectorCall, nil
	default:
		return 0, abi.Unsupportedf("calling convention %s on x86", cc)
	}
}

// checkConvention rejects the register-file combinations the psABI
// leaves unspecified.
func (a *X86_32ABI) checkConvention(cc types.CallingConvention) {
	if a.opts.NumRegisterParameters == 0 {
		return
	}
	switch cc {
	case types.CCFastCall, types.CCVectorCall, types.CCThisCall:
		panic(abi.Unsupportedf("regparm(%d) combined with %s",
			a.opts.NumRegisterParameters, cc))
	}
}

func (a *X86_32ABI) computeIRMapping(ft types.FunctionType, argTypes []types.TypeID) abi.FunctionIRMapping {
	a.checkConvention(ft.CallConv)
	classifier := NewX86_32Classifier(a.ti, a.triple, a.opts.NumRegisterParameters)
	argInfos := classifier.ClassifyFunctionType(ft, argTypes)
	return abi.GetFunctionIRMapping(a.ti, argInfos)
}

// FunctionType implements abi.ABI.
func (a *X86_32ABI) FunctionType(ft types.FunctionType) (result ir.FunctionType, err error) {
	defer catchFatal(&err)
	m := a.computeIRMapping(ft, ft.Params)
	return abi.GetFunctionType(a.ti, ft, &m), nil
}

// Attributes implements abi.ABI.
func (a *X86_32ABI) Attributes(ft types.FunctionType, rawArgTypes []types.TypeID, existing abi.AttrList) (result abi.AttrList, err error) {
	defer catchFatal(&err)
	promoter := abi.NewTypePromoter(a.ti)
	argTypes := promoter.PromoteArgumentTypes(ft, rawArgTypes)
	m := a.computeIRMapping(ft, argTypes)
	return abi.GetAttributes(a.ti, &m, existing), nil
}

// CreateCall implements abi.ABI.
func (a *X86_32ABI) CreateCall(b ir.Builder, ft types.FunctionType, callBuilder abi.CallBuilder, rawArgs []abi.TypedValue) (result ir.Value, err error) {
	defer catchFatal(&err)
	promoter := abi.NewTypePromoter(a.ti)
	args := promoter.PromoteArguments(b, ft, rawArgs)

	argTypes := make([]types.TypeID, len(args))
	for i, arg := range args {
		argTypes[i] = arg.Type
	}

	m := a.computeIRMapping(ft, argTypes)
	caller := abi.NewCaller(a.ti, ft, &m, b)

	encoded := caller.EncodeArguments(args, nil)
	returnValue := callBuilder(encoded)
	return caller.DecodeReturnValue(encoded, returnValue, nil), nil
}

// CreateFunctionEncoder implements abi.ABI.
func (a *X86_32ABI) CreateFunctionEncoder(b ir.Builder, ft types.FunctionType, irArgs []ir.Value) (enc abi.FunctionEncoder, err error) {
	defer catchFatal(&err)
	m := a.computeIRMapping(ft, ft.Params)
	return abi.NewEncoder(a.ti, ft, m, b, irArgs), nil
}
