package abi

import (
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/types"
)

// GetFunctionType assembles the IR signature for a lowered function.
// The mapping must have been built from the declared argument types of
// ft.
func GetFunctionType(ti *layout.TypeInfo, ft types.FunctionType, m *FunctionIRMapping) ir.FunctionType {
	tb := ti.TypeBuilder()

	var resultType *ir.Type
	retInfo := m.ReturnArgInfo()
	switch retInfo.Kind() {
	case Expand:
		panic(Invariantf("expand is not a return classification"))
	case Direct, ExtendInteger:
		resultType = ti.IRType(retInfo.CoerceType())
	case InAlloca:
		if retInfo.InAllocaSRet() {
			// sret on win32 is not void: the call returns the sret pointer.
			resultType = tb.Pointer(ti.IRType(ft.Return))
		} else {
			resultType = tb.Void()
		}
	case Indirect:
		if retInfo.IndirectAlign() != 0 {
			panic(Invariantf("alignment unused on indirect return"))
		}
		resultType = tb.Void()
	case Ignore:
		resultType = ti.IRType(ft.Return)
	}

	if len(m.Arguments()) != len(ft.Params) {
		panic(Invariantf("mapping has %d arguments, function type %d",
			len(m.Arguments()), len(ft.Params)))
	}

	argTypes := make([]*ir.Type, m.TotalIRArgs())

	if m.HasStructRetArg() {
		argTypes[m.StructRetArgIndex()] = tb.Pointer(ti.IRType(ft.Return))
	}
	if m.HasInallocaArg() {
		panic(Unimplementedf("inalloca argument emission"))
	}

	for argNo, am := range m.Arguments() {
		argInfo := am.ArgInfo
		argType := ft.Params[argNo]

		if m.HasPaddingArg(argNo) {
			argTypes[m.PaddingArgIndex(argNo)] = ti.IRType(argInfo.PaddingType())
		}

		first, count := m.IRArgRange(argNo)

		switch argInfo.Kind() {
		case Ignore, InAlloca:
			if count != 0 {
				panic(Invariantf("%s argument owns %d IR slots", argInfo.Kind(), count))
			}

		case Indirect:
			// Indirect arguments are always on the stack (address space 0).
			argTypes[first] = tb.Pointer(ti.IRType(argType))

		case Direct, ExtendInteger:
			// Flattened struct coercions get one scalar slot per member;
			// scalars like them better than first-class aggregates.
			coerce := argInfo.CoerceType()
			if ti.Types.Kind(coerce) == types.KindStruct && argInfo.IsDirect() && argInfo.CanBeFlattened() {
				fields := ti.Types.RecordFields(coerce)
				if count != len(fields) {
					panic(Invariantf("flattened arg owns %d slots for %d members", count, len(fields)))
				}
				for i, f := range fields {
					argTypes[first+i] = ti.IRType(f.Type)
				}
			} else {
				if count != 1 {
					panic(Invariantf("direct argument owns %d IR slots", count))
				}
				argTypes[first] = ti.IRType(coerce)
			}

		case Expand:
			expanded := GetExpandedTypes(ti, argInfo.ExpandType(), nil)
			if len(expanded) != count {
				panic(Invariantf("expansion yielded %d slots, mapping reserved %d", len(expanded), count))
			}
			copy(argTypes[first:first+count], expanded)
		}
	}

	for i, t := range argTypes {
		if t == nil {
			panic(Invariantf("IR argument %d left unassigned", i))
		}
	}

	return ir.FunctionType{Return: resultType, Params: argTypes, Variadic: ft.IsVarArg}
}

// GetAttributes assembles the attribute list for a lowered function,
// merging the driver's existing attributes; some of those may need to
// be removed (readnone/readonly once memory is passed indirectly).
func GetAttributes(ti *layout.TypeInfo, m *FunctionIRMapping, existing AttrList) AttrList {
	result := NewAttrList(m.TotalIRArgs())
	result.Fn = existing.Fn
	result.Ret = existing.Ret
	for i := range existing.Args {
		if i < len(result.Args) {
			result.Args[i] = existing.Args[i]
		}
	}

	retInfo := m.ReturnArgInfo()
	switch retInfo.Kind() {
	case ExtendInteger:
		coerce := retInfo.CoerceType()
		if ti.HasSignedIntegerRepresentation(coerce) {
			result.Ret.Add(AttrSExt)
		} else if ti.HasUnsignedIntegerRepresentation(coerce) {
			result.Ret.Add(AttrZExt)
		}
		if retInfo.InReg() {
			result.Ret.Add(AttrInReg)
		}
	case Direct:
		if retInfo.InReg() {
			result.Ret.Add(AttrInReg)
		}
	case Ignore:
	case InAlloca, Indirect:
		// inalloca and sret disable readnone and readonly.
		result.Fn.Remove(AttrReadOnly)
		result.Fn.Remove(AttrReadNone)
	case Expand:
		panic(Invariantf("expand is not a return classification"))
	}

	if m.HasStructRetArg() {
		sret := result.Arg(m.StructRetArgIndex())
		sret.Add(AttrStructRet)
		sret.Add(AttrNoAlias)
		if retInfo.InReg() {
			sret.Add(AttrInReg)
		}
	}
	if m.HasInallocaArg() {
		result.Arg(m.InallocaArgIndex()).Add(AttrInAlloca)
	}

	for argNo, am := range m.Arguments() {
		argInfo := am.ArgInfo
		var attrs AttrSet

		if m.HasPaddingArg(argNo) && argInfo.PaddingInReg() {
			result.Arg(m.PaddingArgIndex(argNo)).Add(AttrInReg)
		}

		switch argInfo.Kind() {
		case ExtendInteger:
			coerce := argInfo.CoerceType()
			if ti.HasSignedIntegerRepresentation(coerce) {
				attrs.Add(AttrSExt)
			} else if ti.HasUnsignedIntegerRepresentation(coerce) {
				attrs.Add(AttrZExt)
			}
			if argInfo.InReg() {
				attrs.Add(AttrInReg)
			}
		case Direct:
			if argInfo.InReg() {
				attrs.Add(AttrInReg)
			}
		case Indirect:
			if argInfo.InReg() {
				attrs.Add(AttrInReg)
			}
			if argInfo.IndirectByVal() {
				attrs.Add(AttrByVal)
			}
			attrs.Align = argInfo.IndirectAlign()
			// byval disables readnone and readonly.
			result.Fn.Remove(AttrReadOnly)
			result.Fn.Remove(AttrReadNone)
		case Ignore, Expand:
			continue
		case InAlloca:
			result.Fn.Remove(AttrReadOnly)
			result.Fn.Remove(AttrReadNone)
			continue
		}

		if !attrs.Empty() {
			first, count := m.IRArgRange(argNo)
			for i := 0; i < count; i++ {
				slot := result.Arg(first + i)
				slot.Bits |= attrs.Bits
				if attrs.Align != 0 {
					slot.Align = attrs.Align
				}
			}
		}
	}

	return result
}
