package abi

import (
	"cabi/internal/ir"
	"cabi/internal/types"
)

// TypedValue pairs a source type with the IR value holding it.
type TypedValue struct {
	Value ir.Value
	Type  types.TypeID
}

// MakeTypedValue builds a TypedValue.
func MakeTypedValue(v ir.Value, t types.TypeID) TypedValue {
	return TypedValue{Value: v, Type: t}
}

// CallBuilder emits the actual call instruction once the arguments are
// encoded; the driver chooses the instruction (call, invoke) and
// returns its result value.
type CallBuilder func(irArgs []ir.Value) ir.Value
