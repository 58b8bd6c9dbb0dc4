package layout

import (
	"fmt"

	"cabi/internal/types"
)

// RecordLayout is the computed layout of a struct or union: total size
// and alignment in bytes plus the bit offset of every member. A
// flexible array member is not a member of the field list: it gets no
// offset and contributes no size.
type RecordLayout struct {
	Size           int64
	Align          int
	FieldBitOffset []int64
}

// RecordLayout computes and caches the layout of a struct or union.
func (ti *TypeInfo) RecordLayout(id types.TypeID) RecordLayout {
	if l, ok := ti.cache.getRecord(id); ok {
		return l
	}
	var l RecordLayout
	if info, ok := ti.Types.StructInfo(id); ok {
		l = ti.structLayout(info)
	} else if info, ok := ti.Types.UnionInfo(id); ok {
		l = ti.unionLayout(info)
	} else {
		panic(fmt.Errorf("record layout of non-record type#%d", id))
	}
	ti.cache.putRecord(id, l)
	return l
}

func (ti *TypeInfo) structLayout(info *types.StructInfo) RecordLayout {
	l := RecordLayout{Align: 1}
	var bitOffset int64

	for _, f := range info.Fields {
		fieldAlignBits := int64(ti.ABIAlign(f.Type)) * 8
		if info.Packed {
			fieldAlignBits = 8
		}

		switch {
		case f.BitField && f.BitWidth == 0:
			// A zero-width bit-field closes the current storage unit:
			// the next member starts at a boundary of the declared type.
			bitOffset = alignBits(bitOffset, fieldAlignBits)
			l.FieldBitOffset = append(l.FieldBitOffset, bitOffset)

		case f.BitField:
			width := int64(f.BitWidth)
			unitBits := ti.SizeBits(f.Type)
			if width > unitBits {
				panic(fmt.Errorf("bit-field width %d exceeds unit of %s",
					width, ti.Types.TypeString(f.Type)))
			}
			// Allocate at the current offset unless the field would
			// straddle a storage unit of its declared type.
			if !info.Packed &&
				bitOffset/unitBits != (bitOffset+width-1)/unitBits {
				bitOffset = alignBits(bitOffset, unitBits)
			}
			l.FieldBitOffset = append(l.FieldBitOffset, bitOffset)
			bitOffset += width
			if !info.Packed {
				l.Align = maxInt(l.Align, int(fieldAlignBits/8))
			}

		default:
			bitOffset = alignBits(bitOffset, fieldAlignBits)
			l.FieldBitOffset = append(l.FieldBitOffset, bitOffset)
			bitOffset += ti.SizeBits(f.Type)
			l.Align = maxInt(l.Align, int(fieldAlignBits/8))
		}
	}

	if info.Packed {
		l.Align = 1
	}
	l.Size = alignBytes((bitOffset+7)/8, l.Align)
	return l
}

func (ti *TypeInfo) unionLayout(info *types.UnionInfo) RecordLayout {
	l := RecordLayout{Align: 1}
	for _, f := range info.Fields {
		l.FieldBitOffset = append(l.FieldBitOffset, 0)
		var size int64
		if f.BitField {
			size = (int64(f.BitWidth) + 7) / 8
		} else {
			size = ti.AllocSize(f.Type)
		}
		l.Size = maxInt64(l.Size, size)
		l.Align = maxInt(l.Align, ti.ABIAlign(f.Type))
	}
	l.Size = alignBytes(l.Size, l.Align)
	return l
}

func alignBits(v, align int64) int64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

func alignBytes(v int64, align int) int64 {
	return alignBits(v, int64(align))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
