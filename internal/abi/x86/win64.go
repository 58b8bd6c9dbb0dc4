package x86

import (
	"cabi/internal/abi"
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/target"
	"cabi/internal/types"
)

// Win64ABI is the reserved pipeline for x86_64 Windows. The Win64
// convention differs from System V (four shadow-space parameter slots,
// no eightbyte classification); every lowering operation reports it as
// unimplemented until that pipeline exists.
type Win64ABI struct {
	ti *layout.TypeInfo
}

// NewWin64ABI builds the Win64 placeholder pipeline.
func NewWin64ABI(triple target.Triple, typesIn *types.Interner) *Win64ABI {
	return &Win64ABI{
		ti: layout.New(layout.X86_64SysV(triple), typesIn, ir.NewTypeBuilder()),
	}
}

// Name implements abi.ABI.
func (a *Win64ABI) Name() string { return "Win64" }

// TypeInfo implements abi.ABI.
func (a *Win64ABI) TypeInfo() *layout.TypeInfo { return a.ti }

// CallingConvention implements abi.ABI.
func (a *Win64ABI) CallingConvention(cc types.CallingConvention) (ir.CallingConv, error) {
	switch cc {
	case types.CCDefault, types.CCCppDefault:
		return ir.CallConvC, nil
	default:
		return 0, abi.Unsupportedf("calling convention %s on Win64", cc)
	}
}

// FunctionType implements abi.ABI.
func (a *Win64ABI) FunctionType(types.FunctionType) (ir.FunctionType, error) {
	return ir.FunctionType{}, abi.Unimplementedf("Win64 function type lowering")
}

// Attributes implements abi.ABI.
func (a *Win64ABI) Attributes(types.FunctionType, []types.TypeID, abi.AttrList) (abi.AttrList, error) {
	return abi.AttrList{}, abi.Unimplementedf("Win64 attribute lowering")
}

// CreateCall implements abi.ABI.
func (a *Win64ABI) CreateCall(ir.Builder, types.FunctionType, abi.CallBuilder, []abi.TypedValue) (ir.Value, error) {
	return nil, abi.Unimplementedf("Win64 call lowering")
}

// CreateFunctionEncoder implements abi.ABI.
func (a *Win64ABI) CreateFunctionEncoder(ir.Builder, types.FunctionType, []ir.Value) (abi.FunctionEncoder, error) {
	return nil, abi.Unimplementedf("Win64 function encoding")
}
