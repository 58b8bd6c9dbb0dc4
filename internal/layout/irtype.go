package layout

import (
	"fmt"

	"fortio.org/safecast"

	"cabi/internal/ir"
	"cabi/internal/types"
)

// IRType maps a source type to the IR type a code generator sees.
// Structs whose natural IR layout reproduces the source layout map to
// literal IR structs; bit-field or packing-distorted records fall back
// to a byte array of the right size, as do unions.
func (ti *TypeInfo) IRType(id types.TypeID) *ir.Type {
	if t, ok := ti.cache.getIRType(id); ok {
		return t
	}
	t := ti.irType(id)
	ti.cache.putIRType(id, t)
	return t
}

func (ti *TypeInfo) irType(id types.TypeID) *ir.Type {
	tt := ti.Types.MustLookup(id)
	switch tt.Kind {
	case types.KindVoid:
		return ti.tb.Void()
	case types.KindBool:
		return ti.tb.Int(1)
	case types.KindInt, types.KindUint:
		return ti.tb.Int(int(tt.Width))
	case types.KindFloat:
		return ti.floatIRType(tt.Width)
	case types.KindPointer:
		return ti.tb.PointerIn(ti.tb.Int(8), int(tt.AddrSpace))
	case types.KindArray:
		return ti.tb.Array(ti.IRType(tt.Elem), int(tt.Count))
	case types.KindVector:
		return ti.tb.Vector(ti.IRType(tt.Elem), int(tt.Count))
	case types.KindComplex:
		elem := ti.IRType(tt.Elem)
		return ti.tb.Struct(elem, elem)
	case types.KindStruct:
		return ti.structIRType(id)
	case types.KindUnion:
		return ti.byteArray(ti.AllocSize(id))
	default:
		panic(fmt.Errorf("IR type of %s", tt.Kind))
	}
}

func (ti *TypeInfo) structIRType(id types.TypeID) *ir.Type {
	info, _ := ti.Types.StructInfo(id)
	l := ti.RecordLayout(id)

	fields := make([]*ir.Type, 0, len(info.Fields))
	for _, f := range info.Fields {
		if f.BitField {
			return ti.byteArray(l.Size)
		}
		fields = append(fields, ti.IRType(f.Type))
	}

	st := ti.tb.Struct(fields...)
	if !ti.irLayoutMatches(st, l) {
		return ti.byteArray(l.Size)
	}
	return st
}

// irLayoutMatches checks that the natural IR struct layout reproduces
// the source record layout, so that IR member GEPs hit source offsets.
func (ti *TypeInfo) irLayoutMatches(st *ir.Type, l RecordLayout) bool {
	if ti.Target.DL.AllocSize(st) != l.Size {
		return false
	}
	offsets := ti.Target.DL.StructOffsets(st)
	if len(offsets) != len(l.FieldBitOffset) {
		return false
	}
	for i, off := range offsets {
		if off*8 != l.FieldBitOffset[i] {
			return false
		}
	}
	return true
}

func (ti *TypeInfo) byteArray(size int64) *ir.Type {
	n, err := safecast.Conv[int](size)
	if err != nil {
		panic(fmt.Errorf("record size overflow: %w", err))
	}
	return ti.tb.Array(ti.tb.Int(8), n)
}
