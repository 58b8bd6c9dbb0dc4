package abi

import (
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/types"
)

// TypePromoter applies C default argument promotions to the variadic
// tail of a call: bool and integers narrower than int, signed or
// unsigned, widen to int; float widens to double. Named arguments pass through
// unchanged, so promoting an already-promoted tail is a no-op.
type TypePromoter struct {
	ti *layout.TypeInfo
}

// NewTypePromoter builds a promoter over the given type info.
func NewTypePromoter(ti *layout.TypeInfo) TypePromoter {
	return TypePromoter{ti: ti}
}

// PromoteType returns the promoted form of a variadic argument type.
func (p TypePromoter) PromoteType(id types.TypeID) types.TypeID {
	b := p.ti.Types.Builtins()
	tt := p.ti.Types.MustLookup(id)
	switch tt.Kind {
	case types.KindBool:
		return b.Int32
	case types.KindInt:
		if tt.Width < types.Width32 {
			return b.Int32
		}
	case types.KindUint:
		if tt.Width < types.Width32 {
			// Unsigned char and short are representable in int.
			return b.Int32
		}
	case types.KindFloat:
		if tt.Width == types.Width32 {
			return b.Double
		}
	}
	return id
}

// PromoteArgumentTypes promotes the variadic tail of rawArgTypes; the
// named prefix of ft passes through unchanged.
func (p TypePromoter) PromoteArgumentTypes(ft types.FunctionType, rawArgTypes []types.TypeID) []types.TypeID {
	if len(rawArgTypes) < len(ft.Params) {
		panic(Invariantf("%d argument types for %d parameters", len(rawArgTypes), len(ft.Params)))
	}
	out := make([]types.TypeID, len(rawArgTypes))
	copy(out, rawArgTypes[:len(ft.Params)])
	for i := len(ft.Params); i < len(rawArgTypes); i++ {
		out[i] = p.PromoteType(rawArgTypes[i])
	}
	return out
}

// PromoteArguments promotes the variadic tail of a call's values,
// emitting the widening conversions.
func (p TypePromoter) PromoteArguments(b ir.Builder, ft types.FunctionType, raw []TypedValue) []TypedValue {
	out := make([]TypedValue, len(raw))
	copy(out, raw[:min(len(raw), len(ft.Params))])
	for i := len(ft.Params); i < len(raw); i++ {
		out[i] = p.promoteValue(b, raw[i])
	}
	return out
}

func (p TypePromoter) promoteValue(b ir.Builder, tv TypedValue) TypedValue {
	promoted := p.PromoteType(tv.Type)
	if promoted == tv.Type {
		return tv
	}
	dest := p.ti.IRType(promoted)
	var v ir.Value
	switch {
	case p.ti.Types.Kind(tv.Type) == types.KindFloat:
		v = b.Current().FPExt(tv.Value, dest, "promote.fp")
	case p.ti.HasSignedIntegerRepresentation(tv.Type):
		v = b.Current().SExt(tv.Value, dest, "promote.sext")
	default:
		v = b.Current().ZExt(tv.Value, dest, "promote.zext")
	}
	return MakeTypedValue(v, promoted)
}
