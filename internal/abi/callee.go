package abi

import (
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/types"
)

// Callee reconstructs source argument values from the IR parameters of
// a function body and encodes its return value. It holds the mapping
// only for the duration of that function body.
type Callee struct {
	ti *layout.TypeInfo
	ft types.FunctionType
	m  *FunctionIRMapping
	b  ir.Builder
}

// NewCallee builds a callee-side decoder.
func NewCallee(ti *layout.TypeInfo, ft types.FunctionType, m *FunctionIRMapping, b ir.Builder) Callee {
	return Callee{ti: ti, ft: ft, m: m, b: b}
}

// DecodeArguments converts the IR parameters of the enclosing function
// into source-typed argument values, one per declared parameter.
func (c Callee) DecodeArguments(encoded []ir.Value) []ir.Value {
	if len(encoded) != c.m.TotalIRArgs() {
		panic(Invariantf("%d IR arguments, mapping expects %d", len(encoded), c.m.TotalIRArgs()))
	}

	args := make([]ir.Value, 0, len(c.ft.Params))

	for argNo, argType := range c.ft.Params {
		argInfo := c.m.Arguments()[argNo].ArgInfo
		first, count := c.m.IRArgRange(argNo)

		switch argInfo.Kind() {
		case InAlloca:
			panic(Unimplementedf("inalloca argument decoding"))

		case Indirect:
			if count != 1 {
				panic(Invariantf("indirect argument owns %d IR slots", count))
			}
			value := encoded[first]

			if c.ti.Types.IsAggregate(argType) {
				// Aggregates arrive by reference; realign through a
				// temporary when the incoming pointer may be
				// under-aligned.
				if argInfo.IndirectRealign() {
					aligned := createMemTemp(c.ti, c.b, argType, "realign")
					size := c.ti.AllocSize(argType)
					c.b.Current().MemCpy(aligned, value, size, argInfo.IndirectAlign())
					value = aligned
				}
				align := c.ti.PreferredAlign(argType)
				if argInfo.IndirectAlign() > align {
					align = argInfo.IndirectAlign()
				}
				args = append(args, c.b.Current().Load(c.ti.IRType(argType), value, align, ""))
			} else {
				args = append(args, c.b.Current().Load(c.ti.IRType(argType), value, argInfo.IndirectAlign(), ""))
			}

		case Direct, ExtendInteger:
			coerce := argInfo.CoerceType()

			// Trivial case: no reshaping needed.
			if c.ti.Types.Kind(coerce) != types.KindStruct && coerce == argType {
				if count != 1 {
					panic(Invariantf("direct argument owns %d IR slots", count))
				}
				value := encoded[first]
				if !value.Type().Equal(c.ti.IRType(coerce)) {
					value = c.b.Current().BitCast(value, c.ti.IRType(coerce), "")
				}
				if !value.Type().Equal(c.ti.IRType(argType)) {
					value = c.b.Current().BitCast(value, c.ti.IRType(argType), "")
				}
				args = append(args, value)
				break
			}

			slot := c.b.Entry().Alloca(c.ti.IRType(argType),
				maxInt(c.ti.PreferredAlign(coerce), c.ti.PreferredAlign(argType)), "coerce.mem")

			coerceFields := []types.Field(nil)
			if c.ti.Types.Kind(coerce) == types.KindStruct {
				coerceFields = c.ti.Types.RecordFields(coerce)
			}

			if argInfo.IsDirect() && argInfo.CanBeFlattened() && len(coerceFields) > 1 {
				if count != len(coerceFields) {
					panic(Invariantf("flattened arg owns %d slots for %d members", count, len(coerceFields)))
				}
				srcSize := c.ti.AllocSize(coerce)
				destSize := c.ti.AllocSize(argType)

				if srcSize <= destSize {
					destPtr := c.b.Current().BitCast(slot,
						c.ti.TypeBuilder().Pointer(c.ti.IRType(coerce)), "")
					for i := range coerceFields {
						elemPtr := c.b.Current().ConstGEP2(c.ti.IRType(coerce), destPtr, i, "")
						c.b.Current().Store(encoded[first+i], elemPtr, 0)
					}
				} else {
					// The coercion is wider than the argument: assemble
					// it off to the side and copy the prefix in.
					tmp := createTempAlloca(c.ti, c.b, coerce, "coerce.wide")
					for i := range coerceFields {
						elemPtr := c.b.Current().ConstGEP2(c.ti.IRType(coerce), tmp, i, "")
						c.b.Current().Store(encoded[first+i], elemPtr, 0)
					}
					c.b.Current().MemCpy(slot, tmp, destSize, 1)
				}
			} else {
				if count != 1 {
					panic(Invariantf("direct argument owns %d IR slots", count))
				}
				createCoercedStore(c.ti, c.b, encoded[first], slot, coerce, argType)
			}

			args = append(args, c.b.Current().Load(c.ti.IRType(argType), slot, 0, ""))

		case Expand:
			slot := createMemTemp(c.ti, c.b, argType, "expand.dest.arg")
			used := expandTypeFromArgs(c.ti, c.b, argType, slot, encoded[first:first+count])
			if used != count {
				panic(Invariantf("expansion consumed %d values, mapping reserved %d", used, count))
			}
			args = append(args, c.b.Current().Load(c.ti.IRType(argType), slot, c.ti.PreferredAlign(argType), ""))

		case Ignore:
			if count != 0 {
				panic(Invariantf("ignored argument owns %d IR slots", count))
			}
			args = append(args, c.b.Current().Undef(c.ti.IRType(argType)))
		}
	}

	return args
}

// EncodeReturnValue converts a source-typed return value into the IR
// return. For indirect returns the value is stored through the hidden
// pointer and the IR return is void (a void-typed undef).
func (c Callee) EncodeReturnValue(returnValue ir.Value, encoded []ir.Value) ir.Value {
	if returnValue == nil {
		panic(Invariantf("nil return value"))
	}
	if len(encoded) != c.m.TotalIRArgs() {
		panic(Invariantf("%d IR arguments, mapping expects %d", len(encoded), c.m.TotalIRArgs()))
	}

	retInfo := c.m.ReturnArgInfo()
	returnType := c.ft.Return
	voidUndef := func() ir.Value {
		return c.b.Current().Undef(c.ti.TypeBuilder().Void())
	}

	switch retInfo.Kind() {
	case InAlloca:
		panic(Unimplementedf("inalloca return encoding"))

	case Indirect:
		argIndex := 0
		if retInfo.SRetAfterThis() {
			argIndex = 1
		}
		if argIndex >= len(encoded) {
			panic(Invariantf("sret argument %d beyond IR arguments", argIndex))
		}
		storeThrough(c.ti, c.b, returnValue, encoded[argIndex], 0)
		return voidUndef()

	case Direct, ExtendInteger:
		coerce := retInfo.CoerceType()
		if c.ti.IRType(coerce).Equal(c.ti.IRType(returnType)) {
			return returnValue
		}
		// Store the value into a temporary and perform a coerced load.
		srcPtr := createMemTemp(c.ti, c.b, returnType, "coerce.ret")
		storeThrough(c.ti, c.b, returnValue, srcPtr, c.ti.PreferredAlign(returnType))
		return createCoercedLoad(c.ti, c.b, srcPtr, returnType, coerce)

	case Ignore:
		return c.b.Current().Undef(c.ti.IRType(returnType))

	case Expand:
		panic(Invariantf("expand is not a return classification"))
	}
	panic(Invariantf("unhandled return kind"))
}
