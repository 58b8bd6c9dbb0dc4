package abi

import (
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/types"
)

// Caller encodes source argument values into the IR arguments of one
// call site and decodes the IR return value back. It holds the mapping
// only for the duration of that call site.
type Caller struct {
	ti *layout.TypeInfo
	ft types.FunctionType
	m  *FunctionIRMapping
	b  ir.Builder
}

// NewCaller builds a caller-side encoder.
func NewCaller(ti *layout.TypeInfo, ft types.FunctionType, m *FunctionIRMapping, b ir.Builder) Caller {
	return Caller{ti: ti, ft: ft, m: m, b: b}
}

// EncodeArguments converts source-typed argument values into the IR
// argument vector. returnValuePtr may point at caller-provided return
// storage for indirect returns; nil allocates a temporary. The result
// has exactly TotalIRArgs values whose types match the IR signature
// slot by slot.
func (c Caller) EncodeArguments(args []TypedValue, returnValuePtr ir.Value) []ir.Value {
	if len(args) < len(c.ft.Params) {
		panic(Invariantf("%d arguments for %d parameters", len(args), len(c.ft.Params)))
	}

	irCallArgs := make([]ir.Value, c.m.TotalIRArgs())
	retInfo := c.m.ReturnArgInfo()

	// For indirect returns, pass a pointer to the result slot.
	if retInfo.IsIndirect() || retInfo.IsInAlloca() {
		structRetPtr := returnValuePtr
		if structRetPtr == nil {
			structRetPtr = createMemTemp(c.ti, c.b, c.ft.Return, "agg.result")
		}
		if !c.m.HasStructRetArg() {
			panic(Unimplementedf("inalloca return slot"))
		}
		irCallArgs[c.m.StructRetArgIndex()] = structRetPtr
	}

	for argNo, arg := range args {
		if argNo >= len(c.m.Arguments()) {
			panic(Invariantf("argument %d beyond classified range", argNo))
		}
		argInfo := c.m.Arguments()[argNo].ArgInfo
		argType := arg.Type
		argValue := arg.Value

		if c.m.HasPaddingArg(argNo) {
			irCallArgs[c.m.PaddingArgIndex(argNo)] =
				c.b.Current().Undef(c.ti.IRType(argInfo.PaddingType()))
		}

		first, count := c.m.IRArgRange(argNo)

		switch argInfo.Kind() {
		case InAlloca:
			panic(Unimplementedf("inalloca argument encoding"))

		case Indirect:
			if count != 1 {
				panic(Invariantf("indirect argument owns %d IR slots", count))
			}
			align := c.ti.PreferredAlign(argType)
			if argInfo.IndirectAlign() > align {
				align = argInfo.IndirectAlign()
			}
			slot := c.b.Entry().Alloca(c.ti.IRType(argType), align, "indirect.arg.mem")
			storeThrough(c.ti, c.b, argValue, slot, align)
			irCallArgs[first] = slot

		case Ignore:
			if count != 0 {
				panic(Invariantf("ignored argument owns %d IR slots", count))
			}

		case Direct, ExtendInteger:
			coerce := argInfo.CoerceType()

			// Trivial case: the value already has the machine shape.
			if c.ti.Types.Kind(coerce) != types.KindStruct && coerce == argType {
				if count != 1 {
					panic(Invariantf("direct argument owns %d IR slots", count))
				}
				value := argValue
				wantType := c.ti.IRType(argType)
				// We might have to widen integers, but should never truncate.
				if !wantType.Equal(value.Type()) && value.Type().IsInt() {
					value = c.b.Current().ZExt(value, wantType, "")
				}
				if !wantType.Equal(value.Type()) {
					value = c.b.Current().BitCast(value, wantType, "")
				}
				irCallArgs[first] = value
				break
			}

			srcPtr := createMemTemp(c.ti, c.b, argType, "coerce.arg.source")
			storeThrough(c.ti, c.b, argValue, srcPtr, 0)

			if c.ti.Types.Kind(coerce) == types.KindStruct &&
				argInfo.IsDirect() && argInfo.CanBeFlattened() {
				srcSize := c.ti.AllocSize(argType)
				destSize := c.ti.AllocSize(coerce)

				// When the coercion reads past the source value, copy it
				// into a temporary of the wider type; the trailing bits
				// stay undefined.
				if srcSize < destSize {
					tmp := createTempAlloca(c.ti, c.b, coerce, "coerce.arg.wide")
					c.b.Current().MemCpy(tmp, srcPtr, srcSize, 1)
					srcPtr = tmp
				} else {
					srcPtr = c.b.Current().BitCast(srcPtr,
						c.ti.TypeBuilder().Pointer(c.ti.IRType(coerce)), "")
				}

				fields := c.ti.Types.RecordFields(coerce)
				if count != len(fields) {
					panic(Invariantf("flattened arg owns %d slots for %d members", count, len(fields)))
				}
				for i, f := range fields {
					elemPtr := c.b.Current().ConstGEP2(c.ti.IRType(coerce), srcPtr, i, "")
					// We don't know what we're loading from.
					irCallArgs[first+i] = c.b.Current().Load(c.ti.IRType(f.Type), elemPtr, 1, "")
				}
			} else {
				if count != 1 {
					panic(Invariantf("direct argument owns %d IR slots", count))
				}
				irCallArgs[first] = createCoercedLoad(c.ti, c.b, srcPtr, argType, coerce)
			}

		case Expand:
			slot := createMemTemp(c.ti, c.b, argType, "expand.source.arg")
			storeThrough(c.ti, c.b, argValue, slot, c.ti.PreferredAlign(argType))
			expanded := expandTypeToArgs(c.ti, c.b, argType, slot, nil)
			if len(expanded) != count {
				panic(Invariantf("expansion yielded %d values, mapping reserved %d", len(expanded), count))
			}
			copy(irCallArgs[first:first+count], expanded)
		}
	}

	for i, v := range irCallArgs {
		if v == nil {
			panic(Invariantf("IR call argument %d left unassigned", i))
		}
	}
	return irCallArgs
}

// DecodeReturnValue converts the IR return of the emitted call back
// into a source-typed value. encodedArgs is the vector produced by
// EncodeArguments; returnValuePtr mirrors the EncodeArguments
// parameter.
func (c Caller) DecodeReturnValue(encodedArgs []ir.Value, encodedRet ir.Value, returnValuePtr ir.Value) ir.Value {
	retInfo := c.m.ReturnArgInfo()
	returnType := c.ft.Return

	switch retInfo.Kind() {
	case InAlloca:
		panic(Unimplementedf("inalloca return decoding"))

	case Indirect:
		retPtr := encodedArgs[c.m.StructRetArgIndex()]
		return c.b.Current().Load(c.ti.IRType(returnType), retPtr, 0, "")

	case Ignore:
		return encodedRet

	case Direct, ExtendInteger:
		coerce := retInfo.CoerceType()
		returnIRType := c.ti.IRType(returnType)

		if c.ti.IRType(coerce).Equal(returnIRType) {
			switch c.ti.Types.Kind(returnType) {
			case types.KindArray, types.KindStruct, types.KindComplex, types.KindUnion:
				destPtr := returnValuePtr
				if destPtr == nil {
					destPtr = createMemTemp(c.ti, c.b, returnType, "agg.tmp")
				}
				buildAggStore(c.ti, c.b, encodedRet, destPtr, false)
				return c.b.Current().Load(returnIRType, destPtr, c.ti.PreferredAlign(returnType), "")
			default:
				if !encodedRet.Type().Equal(returnIRType) {
					return c.b.Current().BitCast(encodedRet, returnIRType, "")
				}
				return encodedRet
			}
		}

		destPtr := createMemTemp(c.ti, c.b, returnType, "coerce")
		createCoercedStore(c.ti, c.b, encodedRet, destPtr, coerce, returnType)
		return c.b.Current().Load(returnIRType, destPtr, c.ti.PreferredAlign(returnType), "")

	case Expand:
		panic(Invariantf("expand is not a return classification"))
	}
	panic(Invariantf("unhandled return kind"))
}
