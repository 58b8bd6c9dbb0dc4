package x86

import (
	"cabi/internal/layout"
	"cabi/internal/types"
)

// Aggregate predicates shared by the i386 classifier.

func isRegisterSizeBits(bits int64) bool {
	return bits == 8 || bits == 16 || bits == 32 || bits == 64
}

// isEmptyField reports whether a record member contributes no data: a
// zero-width bit-field, an empty record, or (optionally) an array of
// empty records.
func isEmptyField(ti *layout.TypeInfo, f types.Field, allowArrays bool) bool {
	if f.BitField {
		return f.BitWidth == 0
	}
	t := f.Type
	if allowArrays {
		for {
			tt := ti.Types.MustLookup(t)
			if tt.Kind != types.KindArray {
				break
			}
			if tt.Count == 0 {
				return true
			}
			if tt.Count != 1 {
				return false
			}
			t = tt.Elem
		}
	}
	return isEmptyRecord(ti, t, allowArrays)
}

// isEmptyRecord reports whether a struct or union has no data members.
func isEmptyRecord(ti *layout.TypeInfo, t types.TypeID, allowArrays bool) bool {
	if !ti.Types.IsRecord(t) {
		return false
	}
	if ti.Types.HasFlexibleArrayMember(t) {
		return false
	}
	for _, f := range ti.Types.RecordFields(t) {
		if !isEmptyField(ti, f, allowArrays) {
			return false
		}
	}
	return true
}

// structSingleElement unwraps a record that contains exactly one
// non-empty member (recursively, diving through nested records and
// single-element arrays) and returns that member's type, NoTypeID when
// the record is not single-element.
func structSingleElement(ti *layout.TypeInfo, t types.TypeID) types.TypeID {
	if !ti.Types.IsRecord(t) || ti.Types.HasFlexibleArrayMember(t) {
		return types.NoTypeID
	}
	found := types.NoTypeID
	for _, f := range ti.Types.RecordFields(t) {
		if isEmptyField(ti, f, true) {
			continue
		}
		if found != types.NoTypeID {
			return types.NoTypeID
		}
		ft := f.Type
		for {
			tt := ti.Types.MustLookup(ft)
			if tt.Kind != types.KindArray || tt.Count != 1 {
				break
			}
			ft = tt.Elem
		}
		if ti.Types.IsRecord(ft) {
			ft = structSingleElement(ti, ft)
			if ft == types.NoTypeID {
				return types.NoTypeID
			}
		}
		found = ft
	}
	if found != types.NoTypeID &&
		ti.AllocSize(found) != ti.AllocSize(t) {
		return types.NoTypeID
	}
	return found
}

// isHomogeneousAggregate reports whether t flattens into 1–4 identical
// floating-point or vector leaves, the shape vectorcall passes in SSE
// registers. It returns the leaf type and count.
func isHomogeneousAggregate(ti *layout.TypeInfo, t types.TypeID) (types.TypeID, int64, bool) {
	base, ok := homogeneousBase(ti, t)
	if !ok || base == types.NoTypeID {
		return types.NoTypeID, 0, false
	}
	baseSize := ti.AllocSize(base)
	if baseSize == 0 || ti.AllocSize(t)%baseSize != 0 {
		return types.NoTypeID, 0, false
	}
	count := ti.AllocSize(t) / baseSize
	if count < 1 || count > 4 {
		return types.NoTypeID, 0, false
	}
	return base, count, true
}

func homogeneousBase(ti *layout.TypeInfo, t types.TypeID) (types.TypeID, bool) {
	tt := ti.Types.MustLookup(t)
	switch tt.Kind {
	case types.KindFloat:
		if tt.Width == types.Width32 || tt.Width == types.Width64 {
			return t, true
		}
		return types.NoTypeID, false
	case types.KindVector:
		bits := ti.SizeBits(t)
		if bits == 64 || bits == 128 || bits == 256 {
			return t, true
		}
		return types.NoTypeID, false
	case types.KindArray:
		if tt.Count == 0 {
			return types.NoTypeID, false
		}
		return homogeneousBase(ti, tt.Elem)
	case types.KindStruct, types.KindUnion:
		base := types.NoTypeID
		for _, f := range ti.Types.RecordFields(t) {
			if isEmptyField(ti, f, true) {
				continue
			}
			if f.BitField {
				return types.NoTypeID, false
			}
			fb, ok := homogeneousBase(ti, f.Type)
			if !ok {
				return types.NoTypeID, false
			}
			if base == types.NoTypeID {
				base = fb
			} else if base != fb {
				return types.NoTypeID, false
			}
		}
		return base, base != types.NoTypeID
	default:
		return types.NoTypeID, false
	}
}
