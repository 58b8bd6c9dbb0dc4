package ir

import (
	"fmt"
	"strings"
)

// FunctionType is the machine-visible signature a code generator must
// emit for a lowered function.
type FunctionType struct {
	Return   *Type
	Params   []*Type
	Variadic bool
}

// Equal compares two function types structurally.
func (ft FunctionType) Equal(o FunctionType) bool {
	if !ft.Return.Equal(o.Return) || ft.Variadic != o.Variadic ||
		len(ft.Params) != len(o.Params) {
		return false
	}
	for i := range ft.Params {
		if !ft.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

func (ft FunctionType) String() string {
	parts := make([]string, 0, len(ft.Params)+1)
	for _, p := range ft.Params {
		parts = append(parts, p.String())
	}
	if ft.Variadic {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("%s (%s)", ft.Return, strings.Join(parts, ", "))
}

// CallingConv is a target-IR calling convention id.
type CallingConv uint8

const (
	CallConvC CallingConv = iota
	CallConvX86StdCall
	CallConvX86FastCall
	CallConvX86ThisCall
	CallConvX86VectorCall
)

func (cc CallingConv) String() string {
	switch cc {
	case CallConvC:
		return "ccc"
	case CallConvX86StdCall:
		return "x86_stdcallcc"
	case CallConvX86FastCall:
		return "x86_fastcallcc"
	case CallConvX86ThisCall:
		return "x86_thiscallcc"
	case CallConvX86VectorCall:
		return "x86_vectorcallcc"
	default:
		return fmt.Sprintf("cc(%d)", uint8(cc))
	}
}
