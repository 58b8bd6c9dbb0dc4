package layout

import (
	"fmt"

	"cabi/internal/ir"
	"cabi/internal/types"
)

// TypeInfo answers layout queries about source types for one target.
// It owns an IR type builder and caches record layouts and derived IR
// types; one TypeInfo serves one dispatcher and is not safe for
// concurrent use.
type TypeInfo struct {
	Target Target
	Types  *types.Interner

	tb    *ir.TypeBuilder
	cache *cache
}

// New creates a TypeInfo for the target over the given interner.
func New(tgt Target, typesIn *types.Interner, tb *ir.TypeBuilder) *TypeInfo {
	if tb == nil {
		tb = ir.NewTypeBuilder()
	}
	return &TypeInfo{
		Target: tgt,
		Types:  typesIn,
		tb:     tb,
		cache:  newCache(),
	}
}

// TypeBuilder exposes the IR type builder so classifiers can construct
// coercion types against the same canonical pool.
func (ti *TypeInfo) TypeBuilder() *ir.TypeBuilder { return ti.tb }

// AllocSize returns the in-memory size of a type in bytes, including
// trailing padding.
func (ti *TypeInfo) AllocSize(id types.TypeID) int64 {
	tt := ti.Types.MustLookup(id)
	switch tt.Kind {
	case types.KindVoid:
		return 0
	case types.KindBool:
		return 1
	case types.KindInt, types.KindUint:
		return ti.Target.DL.AllocSize(ti.tb.Int(int(tt.Width)))
	case types.KindFloat:
		return ti.Target.DL.AllocSize(ti.floatIRType(tt.Width))
	case types.KindPointer:
		return int64(ti.Target.PtrBytes())
	case types.KindArray:
		return ti.AllocSize(tt.Elem) * int64(tt.Count)
	case types.KindVector:
		return ti.Target.DL.AllocSize(ti.IRType(id))
	case types.KindComplex:
		return 2 * ti.AllocSize(tt.Elem)
	case types.KindStruct, types.KindUnion:
		return ti.RecordLayout(id).Size
	default:
		panic(fmt.Errorf("alloc size of %s", tt.Kind))
	}
}

// StoreSize returns the number of bytes a store of the type writes;
// it differs from AllocSize only for x87 extended floats.
func (ti *TypeInfo) StoreSize(id types.TypeID) int64 {
	tt := ti.Types.MustLookup(id)
	if tt.Kind == types.KindFloat && tt.Width == types.Width80 {
		return 10
	}
	return ti.AllocSize(id)
}

// SizeBits returns the alloc size of a type in bits.
func (ti *TypeInfo) SizeBits(id types.TypeID) int64 {
	return ti.AllocSize(id) * 8
}

// ABIAlign returns the required alignment of a type in bytes.
func (ti *TypeInfo) ABIAlign(id types.TypeID) int {
	tt := ti.Types.MustLookup(id)
	switch tt.Kind {
	case types.KindVoid:
		return 1
	case types.KindBool:
		return 1
	case types.KindInt, types.KindUint:
		return ti.Target.DL.ABIAlign(ti.tb.Int(int(tt.Width)))
	case types.KindFloat:
		return ti.Target.DL.ABIAlign(ti.floatIRType(tt.Width))
	case types.KindPointer:
		return ti.Target.PtrBytes()
	case types.KindArray:
		return ti.ABIAlign(tt.Elem)
	case types.KindVector:
		return ti.Target.DL.ABIAlign(ti.IRType(id))
	case types.KindComplex:
		return ti.ABIAlign(tt.Elem)
	case types.KindStruct, types.KindUnion:
		return ti.RecordLayout(id).Align
	default:
		panic(fmt.Errorf("alignment of %s", tt.Kind))
	}
}

// PreferredAlign returns the preferred stack alignment; on i386 the
// 8-byte scalars prefer 8 even though the ABI only requires 4.
func (ti *TypeInfo) PreferredAlign(id types.TypeID) int {
	align := ti.ABIAlign(id)
	if ti.Target.PtrBytes() == 4 && align == 4 && ti.AllocSize(id) >= 8 {
		tt := ti.Types.MustLookup(id)
		switch tt.Kind {
		case types.KindInt, types.KindUint, types.KindFloat:
			return 8
		}
	}
	return align
}

// IsPromotableInteger reports whether C default argument promotions
// widen the type to int.
func (ti *TypeInfo) IsPromotableInteger(id types.TypeID) bool {
	tt, ok := ti.Types.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case types.KindBool:
		return true
	case types.KindInt, types.KindUint:
		return tt.Width < types.Width32
	default:
		return false
	}
}

// HasSignedIntegerRepresentation reports whether sign extension is the
// correct widening for the type.
func (ti *TypeInfo) HasSignedIntegerRepresentation(id types.TypeID) bool {
	return ti.Types.Kind(id) == types.KindInt
}

// HasUnsignedIntegerRepresentation reports whether zero extension is
// the correct widening for the type.
func (ti *TypeInfo) HasUnsignedIntegerRepresentation(id types.TypeID) bool {
	switch ti.Types.Kind(id) {
	case types.KindBool, types.KindUint:
		return true
	default:
		return false
	}
}

// IsBigEndian reports the byte order of the target; false on x86.
func (ti *TypeInfo) IsBigEndian() bool { return ti.Target.DL.BigEndian }

func (ti *TypeInfo) floatIRType(w types.Width) *ir.Type {
	switch w {
	case types.Width16:
		return ti.tb.Half()
	case types.Width32:
		return ti.tb.Float()
	case types.Width64:
		return ti.tb.Double()
	case types.Width80:
		return ti.tb.X86FP80()
	case types.Width128:
		return ti.tb.FP128()
	default:
		panic(fmt.Errorf("float width %d", w))
	}
}
