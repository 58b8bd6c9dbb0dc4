package types

import (
	"fmt"
	"slices"
)

// CallingConvention is the abstract calling-convention tag carried by a
// source function type. The target ABI maps it to an IR convention id.
type CallingConvention uint8

const (
	CCDefault CallingConvention = iota
	CCCDecl
	CCCppDefault
	CCStdCall
	CCFastCall
	CCThisCall
	CCPascal
	CCVectorCall
)

func (cc CallingConvention) String() string {
	switch cc {
	case CCDefault:
		return "default"
	case CCCDecl:
		return "cdecl"
	case CCCppDefault:
		return "c++default"
	case CCStdCall:
		return "stdcall"
	case CCFastCall:
		return "fastcall"
	case CCThisCall:
		return "thiscall"
	case CCPascal:
		return "pascal"
	case CCVectorCall:
		return "vectorcall"
	default:
		return fmt.Sprintf("CallingConvention(%d)", uint8(cc))
	}
}

// FunctionType is a source-level function signature: a return type, the
// named parameter types and a variadic flag. It is immutable once
// handed to the ABI.
type FunctionType struct {
	CallConv CallingConvention
	Return   TypeID
	Params   []TypeID
	IsVarArg bool
}

// MakeFunctionType builds a signature, cloning the parameter list.
func MakeFunctionType(cc CallingConvention, ret TypeID, params []TypeID, isVarArg bool) FunctionType {
	return FunctionType{
		CallConv: cc,
		Return:   ret,
		Params:   slices.Clone(params),
		IsVarArg: isVarArg,
	}
}
