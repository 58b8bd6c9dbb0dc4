package abi

import (
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/types"
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// createTempAlloca reserves an entry-block temporary for one value of
// the source type, at natural alignment.
func createTempAlloca(ti *layout.TypeInfo, b ir.Builder, t types.TypeID, name string) ir.Value {
	return b.Entry().Alloca(ti.IRType(t), 0, name)
}

// createMemTemp is createTempAlloca at the type's preferred alignment.
func createMemTemp(ti *layout.TypeInfo, b ir.Builder, t types.TypeID, name string) ir.Value {
	return b.Entry().Alloca(ti.IRType(t), ti.PreferredAlign(t), name)
}

// storeThrough stores v through ptr, pointer-casting ptr to the value
// type first.
func storeThrough(ti *layout.TypeInfo, b ir.Builder, v, ptr ir.Value, align int) {
	destPtr := ptr
	want := ti.TypeBuilder().Pointer(v.Type())
	if !ptr.Type().Equal(want) {
		destPtr = b.Current().BitCast(ptr, want, "store.cast")
	}
	b.Current().Store(v, destPtr, align)
}

// enterStructPointerForCoercedAccess dives through leading struct
// members to the innermost value covering destSize bytes. The
// comparison is made on store sizes: alloc sizes would overstate the
// reach of a load.
func enterStructPointerForCoercedAccess(ti *layout.TypeInfo, b ir.Builder,
	srcPtr ir.Value, srcStruct types.TypeID, destSize int64) (ir.Value, types.TypeID) {
	fields := ti.Types.RecordFields(srcStruct)
	if len(fields) == 0 {
		return srcPtr, srcStruct
	}

	firstType := fields[0].Type
	firstSize := ti.StoreSize(firstType)
	if firstSize < destSize && firstSize < ti.StoreSize(srcStruct) {
		return srcPtr, srcStruct
	}

	divePtr := b.Current().ConstGEP2(ti.IRType(srcStruct), srcPtr, 0, "coerce.dive")
	if ti.Types.Kind(firstType) == types.KindStruct {
		return enterStructPointerForCoercedAccess(ti, b, divePtr, firstType, destSize)
	}
	return divePtr, firstType
}

// coerceIntOrPtrToIntOrPtr converts between integer/pointer values as
// if the value were coerced through memory: little-endian targets
// preserve the low bits, big-endian targets the high bits.
func coerceIntOrPtrToIntOrPtr(ti *layout.TypeInfo, b ir.Builder,
	value ir.Value, srcType, destType types.TypeID) ir.Value {
	if value.Type().Equal(ti.IRType(destType)) {
		return value
	}

	tb := ti.TypeBuilder()
	intPtrType := tb.Int(ti.Target.PtrBytes() * 8)

	if ti.Types.IsPointer(srcType) {
		if ti.Types.IsPointer(destType) {
			return b.Current().BitCast(value, ti.IRType(destType), "coerce.val")
		}
		value = b.Current().PtrToInt(value, intPtrType, "coerce.val.pi")
	}

	destIntType := ti.IRType(destType)
	if ti.Types.IsPointer(destType) {
		destIntType = intPtrType
	}

	if !value.Type().Equal(destIntType) {
		if ti.IsBigEndian() {
			srcBits := int(ti.StoreSize(srcType) * 8)
			destBits := int(ti.StoreSize(destType) * 8)
			if srcBits > destBits {
				value = b.Current().LShr(value, srcBits-destBits, "coerce.highbits")
				value = b.Current().IntCast(value, destIntType, false, "coerce.val.ii")
			} else {
				value = b.Current().ZExt(value, destIntType, "coerce.val.ii")
				value = b.Current().Shl(value, destBits-srcBits, "coerce.highbits")
			}
		} else {
			value = b.Current().IntCast(value, destIntType, false, "coerce.val.ii")
		}
	}

	if ti.Types.IsPointer(destType) {
		value = b.Current().IntToPtr(value, ti.IRType(destType), "coerce.val.ip")
	}
	return value
}

// createCoercedLoad loads srcPtr, holding a srcType, as a value of
// destType. When the source is smaller than the destination the extra
// bits are undefined.
func createCoercedLoad(ti *layout.TypeInfo, b ir.Builder,
	srcPtr ir.Value, srcType, destType types.TypeID) ir.Value {
	if ti.IRType(srcType).Equal(ti.IRType(destType)) {
		return b.Current().Load(ti.IRType(srcType), srcPtr, 0, "")
	}

	destSize := ti.AllocSize(destType)

	if ti.Types.Kind(srcType) == types.KindStruct {
		srcPtr, srcType = enterStructPointerForCoercedAccess(ti, b, srcPtr, srcType, destSize)
	}

	srcSize := ti.AllocSize(srcType)

	intOrPtr := func(t types.TypeID) bool {
		return ti.Types.IsInteger(t) || ti.Types.IsPointer(t)
	}
	if intOrPtr(destType) && intOrPtr(srcType) {
		loaded := b.Current().Load(ti.IRType(srcType), srcPtr, 0, "")
		return coerceIntOrPtrToIntOrPtr(ti, b, loaded, srcType, destType)
	}

	if srcSize >= destSize {
		// Loading fewer bytes than the source holds is fine; extra
		// source bytes are padding.
		casted := b.Current().BitCast(srcPtr, ti.TypeBuilder().Pointer(ti.IRType(destType)), "")
		return b.Current().Load(ti.IRType(destType), casted, 1, "")
	}

	// Coercion through memory.
	tmp := createTempAlloca(ti, b, destType, "coerce.mem.load")
	b.Current().MemCpy(tmp, srcPtr, srcSize, 1)
	return b.Current().Load(ti.IRType(destType), tmp, 0, "")
}

// buildAggStore stores a first-class aggregate member by member, which
// is friendlier to fast instruction selection than one wide store.
func buildAggStore(ti *layout.TypeInfo, b ir.Builder, src, destPtr ir.Value, lowAlignment bool) {
	align := 0
	if lowAlignment {
		align = 1
	}
	if src.Type().IsStruct() {
		for i := range src.Type().Fields() {
			elemPtr := b.Current().ConstGEP2(src.Type(), destPtr, i, "")
			elem := b.Current().ExtractValue(src, i, "")
			b.Current().Store(elem, elemPtr, align)
		}
	} else {
		b.Current().Store(src, destPtr, align)
	}
}

// createCoercedStore stores src, holding a srcType, into destPtr of
// destType. When the source is larger the upper bits are dropped.
func createCoercedStore(ti *layout.TypeInfo, b ir.Builder,
	src, destPtr ir.Value, srcType, destType types.TypeID) {
	if ti.IRType(srcType).Equal(ti.IRType(destType)) {
		storeThrough(ti, b, src, destPtr, 0)
		return
	}

	srcSize := ti.AllocSize(srcType)

	if ti.Types.Kind(destType) == types.KindStruct {
		destPtr, destType = enterStructPointerForCoercedAccess(ti, b, destPtr, destType, srcSize)
	}

	intOrPtr := func(t types.TypeID) bool {
		return ti.Types.IsInteger(t) || ti.Types.IsPointer(t)
	}
	if intOrPtr(srcType) && intOrPtr(destType) {
		coerced := coerceIntOrPtrToIntOrPtr(ti, b, src, srcType, destType)
		storeThrough(ti, b, coerced, destPtr, 0)
		return
	}

	destSize := ti.AllocSize(destType)

	if srcSize <= destSize {
		casted := b.Current().BitCast(destPtr, ti.TypeBuilder().Pointer(ti.IRType(srcType)), "")
		buildAggStore(ti, b, src, casted, true)
	} else {
		// Coercion through memory.
		tmp := createTempAlloca(ti, b, srcType, "coerce.mem.store")
		storeThrough(ti, b, src, tmp, 0)
		b.Current().MemCpy(destPtr, tmp, destSize, 1)
	}
}

// expandTypeToArgs destructures the value behind ptr into its leaf
// scalars, appending them to out in expansion order.
func expandTypeToArgs(ti *layout.TypeInfo, b ir.Builder,
	t types.TypeID, ptr ir.Value, out []ir.Value) []ir.Value {
	tt := ti.Types.MustLookup(t)
	switch tt.Kind {
	case types.KindVoid:
		panic(Invariantf("expanding void"))

	case types.KindArray:
		for i := 0; i < int(tt.Count); i++ {
			elemAddr := b.Current().ConstGEP2(ti.IRType(t), ptr, i, "")
			out = expandTypeToArgs(ti, b, tt.Elem, elemAddr, out)
		}

	case types.KindStruct:
		if ti.Types.HasFlexibleArrayMember(t) {
			panic(Unsupportedf("cannot expand struct with flexible array member"))
		}
		for i, field := range ti.Types.RecordFields(t) {
			if field.BitField && field.BitWidth == 0 {
				continue
			}
			if field.BitField {
				panic(Unsupportedf("cannot expand struct with bit-field members"))
			}
			fieldAddr := b.Current().ConstGEP2(ti.IRType(t), ptr, i, "")
			out = expandTypeToArgs(ti, b, field.Type, fieldAddr, out)
		}

	case types.KindUnion:
		largest := largestUnionField(ti, t)
		if largest == types.NoTypeID {
			return out
		}
		cast := b.Current().BitCast(ptr, ti.TypeBuilder().Pointer(ti.IRType(largest)), "")
		out = expandTypeToArgs(ti, b, largest, cast, out)

	case types.KindComplex:
		elemIR := ti.IRType(tt.Elem)
		realPtr := b.Current().ConstGEP2(ti.IRType(t), ptr, 0, "")
		imagPtr := b.Current().ConstGEP2(ti.IRType(t), ptr, 1, "")
		out = append(out,
			b.Current().Load(elemIR, realPtr, 0, ""),
			b.Current().Load(elemIR, imagPtr, 0, ""))

	default:
		out = append(out, b.Current().Load(ti.IRType(t), ptr, ti.PreferredAlign(t), ""))
	}
	return out
}

// expandTypeFromArgs reassembles the value behind ptr from the IR
// argument window, consuming values in expansion order. It returns the
// number of values consumed.
func expandTypeFromArgs(ti *layout.TypeInfo, b ir.Builder,
	t types.TypeID, ptr ir.Value, in []ir.Value) int {
	tt := ti.Types.MustLookup(t)
	switch tt.Kind {
	case types.KindVoid:
		panic(Invariantf("expanding void"))

	case types.KindArray:
		used := 0
		for i := 0; i < int(tt.Count); i++ {
			elemAddr := b.Current().ConstGEP2(ti.IRType(t), ptr, i, "")
			used += expandTypeFromArgs(ti, b, tt.Elem, elemAddr, in[used:])
		}
		return used

	case types.KindStruct:
		if ti.Types.HasFlexibleArrayMember(t) {
			panic(Unsupportedf("cannot expand struct with flexible array member"))
		}
		used := 0
		for i, field := range ti.Types.RecordFields(t) {
			if field.BitField && field.BitWidth == 0 {
				continue
			}
			if field.BitField {
				panic(Unsupportedf("cannot expand struct with bit-field members"))
			}
			fieldAddr := b.Current().ConstGEP2(ti.IRType(t), ptr, i, "")
			used += expandTypeFromArgs(ti, b, field.Type, fieldAddr, in[used:])
		}
		return used

	case types.KindUnion:
		largest := largestUnionField(ti, t)
		if largest == types.NoTypeID {
			return 0
		}
		cast := b.Current().BitCast(ptr, ti.TypeBuilder().Pointer(ti.IRType(largest)), "")
		return expandTypeFromArgs(ti, b, largest, cast, in)

	case types.KindComplex:
		realPtr := b.Current().ConstGEP2(ti.IRType(t), ptr, 0, "")
		imagPtr := b.Current().ConstGEP2(ti.IRType(t), ptr, 1, "")
		b.Current().Store(in[0], realPtr, 0)
		b.Current().Store(in[1], imagPtr, 0)
		return 2

	default:
		storeThrough(ti, b, in[0], ptr, ti.PreferredAlign(t))
		return 1
	}
}
