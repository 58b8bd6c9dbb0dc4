package x86

import (
	"cabi/internal/abi"
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/target"
	"cabi/internal/types"
)

// X86_64ABI is the System V AMD64 pipeline.
type X86_64ABI struct {
	ti *layout.TypeInfo
}

// NewX86_64ABI builds the SysV pipeline for the given triple.
func NewX86_64ABI(triple target.Triple, typesIn *types.Interner) *X86_64ABI {
	return &X86_64ABI{
		ti: layout.New(layout.X86_64SysV(triple), typesIn, ir.NewTypeBuilder()),
	}
}

// Name implements abi.ABI.
func (a *X86_64ABI) Name() string { return "x86_64" }

// TypeInfo implements abi.ABI.
func (a *X86_64ABI) TypeInfo() *layout.TypeInfo { return a.ti }

// CallingConvention implements abi.ABI. The SysV pipeline knows only
// the default conventions; the i386-specific tags are invalid here.
func (a *X86_64ABI) CallingConvention(cc types.CallingConvention) (ir.CallingConv, error) {
	switch cc {
	case types.CCDefault, types.CCCppDefault:
		return ir.CallConvC, nil
	default:
		return 0, abi.Unsupportedf("calling convention %s on x86_64", cc)
	}
}

func (a *X86_64ABI) computeIRMapping(ft types.FunctionType, argTypes []types.TypeID) abi.FunctionIRMapping {
	classifier := NewClassifier(a.ti)
	argInfos := classifier.ClassifyFunctionType(ft, argTypes)
	return abi.GetFunctionIRMapping(a.ti, argInfos)
}

// FunctionType implements abi.ABI.
func (a *X86_64ABI) FunctionType(ft types.FunctionType) (result ir.FunctionType, err error) {
	defer catchFatal(&err)
	m := a.computeIRMapping(ft, ft.Params)
	return abi.GetFunctionType(a.ti, ft, &m), nil
}

// Attributes implements abi.ABI.
func (a *X86_64ABI) Attributes(ft types.FunctionType, rawArgTypes []types.TypeID, existing abi.AttrList) (result abi.AttrList, err error) {
	defer catchFatal(&err)
	promoter := abi.NewTypePromoter(a.ti)
	argTypes := promoter.PromoteArgumentTypes(ft, rawArgTypes)
	m := a.computeIRMapping(ft, argTypes)
	return abi.GetAttributes(a.ti, &m, existing), nil
}

// CreateCall implements abi.ABI.
func (a *X86_64ABI) CreateCall(b ir.Builder, ft types.FunctionType, callBuilder abi.CallBuilder, rawArgs []abi.TypedValue) (result ir.Value, err error) {
	defer catchFatal(&err)
	for i, arg := range rawArgs {
		if i < len(ft.Params) && arg.Type != ft.Params[i] {
			panic(abi.Invariantf("argument %d has type#%d, expected type#%d", i, arg.Type, ft.Params[i]))
		}
	}

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
func (a *X86_64ABI) CreateFunctionEncoder(b ir.Builder, ft types.FunctionType, irArgs []ir.Value) (enc abi.FunctionEncoder, err error) {
	defer catchFatal(&err)
	m := a.computeIRMapping(ft, ft.Params)
	return abi.NewEncoder(a.ti, ft, m, b, irArgs), nil
}
