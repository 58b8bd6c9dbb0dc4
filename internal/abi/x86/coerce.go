package x86

import (
	"cabi/internal/abi"
	"cabi/internal/types"
)

// This file derives the coerce-to types of Direct classifications: the
// smallest machine types covering the live bits of each eightbyte.

// scalarAt returns the scalar leaf starting exactly at byte offset off
// inside t, NoTypeID when the offset lands in padding, a bit-field or
// mid-scalar.
func (c Classifier) scalarAt(t types.TypeID, off int64) types.TypeID {
	tt := c.ti.Types.MustLookup(t)
	switch tt.Kind {
	case types.KindStruct:
		l := c.ti.RecordLayout(t)
		for i, field := range c.ti.Types.RecordFields(t) {
			if field.BitField {
				continue
			}
			fieldOff := l.FieldBitOffset[i] / 8
			if off >= fieldOff && off < fieldOff+c.ti.AllocSize(field.Type) {
				return c.scalarAt(field.Type, off-fieldOff)
			}
		}
		return types.NoTypeID

	case types.KindUnion:
		for _, field := range c.ti.Types.RecordFields(t) {
			if field.BitField {
				continue
			}
			if s := c.scalarAt(field.Type, off); s != types.NoTypeID {
				return s
			}
		}
		return types.NoTypeID

	case types.KindArray:
		if tt.Count == 0 {
			return types.NoTypeID
		}
		elemSize := c.ti.AllocSize(tt.Elem)
		if elemSize == 0 || off >= elemSize*int64(tt.Count) {
			return types.NoTypeID
		}
		return c.scalarAt(tt.Elem, off%elemSize)

	case types.KindComplex:
		elemSize := c.ti.AllocSize(tt.Elem)
		if off == 0 || off == elemSize {
			return tt.Elem
		}
		return types.NoTypeID

	default:
		if off == 0 {
			return t
		}
		return types.NoTypeID
	}
}

// hasUserDataIn reports whether any live bits of t, itself located at
// absolute byte offset base, fall inside the byte window [lo, hi).
func (c Classifier) hasUserDataIn(t types.TypeID, base, lo, hi int64) bool {
	tt := c.ti.Types.MustLookup(t)
	switch tt.Kind {
	case types.KindVoid:
		return false

	case types.KindStruct:
		l := c.ti.RecordLayout(t)
		for i, field := range c.ti.Types.RecordFields(t) {
			bitOff := l.FieldBitOffset[i]
			if field.BitField {
				if field.BitWidth == 0 {
					continue
				}
				start := base + bitOff/8
				end := base + (bitOff+int64(field.BitWidth)+7)/8
				if overlaps(start, end, lo, hi) {
					return true
				}
				continue
			}
			if c.hasUserDataIn(field.Type, base+bitOff/8, lo, hi) {
				return true
			}
		}
		return false

	case types.KindUnion:
		for _, field := range c.ti.Types.RecordFields(t) {
			if field.BitField {
				if field.BitWidth == 0 {
					continue
				}
				end := base + (int64(field.BitWidth)+7)/8
				if overlaps(base, end, lo, hi) {
					return true
				}
				continue
			}
			if c.hasUserDataIn(field.Type, base, lo, hi) {
				return true
			}
		}
		return false

	case types.KindArray:
		elemSize := c.ti.AllocSize(tt.Elem)
		for i := int64(0); i < int64(tt.Count); i++ {
			if c.hasUserDataIn(tt.Elem, base+i*elemSize, lo, hi) {
				return true
			}
		}
		return false

	case types.KindComplex:
		elemSize := c.ti.AllocSize(tt.Elem)
		return c.hasUserDataIn(tt.Elem, base, lo, hi) ||
			c.hasUserDataIn(tt.Elem, base+elemSize, lo, hi)

	default:
		return overlaps(base, base+c.ti.StoreSize(t), lo, hi)
	}
}

func overlaps(aLo, aHi, bLo, bHi int64) bool {
	return aLo < bHi && bLo < aHi
}

// integerTypeAtOffset picks the integer type carrying the Integer
// eightbyte of t at the given byte offset: a pointer or i64 when one
// sits there, a narrower scalar when the rest of the eightbyte is
// padding, and otherwise the smallest iN covering the live bytes.
func (c Classifier) integerTypeAtOffset(t types.TypeID, off int64) types.TypeID {
	if s := c.scalarAt(t, off); s != types.NoTypeID {
		switch c.ti.Types.Kind(s) {
		case types.KindPointer:
			return s
		case types.KindInt, types.KindUint:
			size := c.ti.AllocSize(s)
			if size == 8 {
				return s
			}
			if size < 8 && !c.hasUserDataIn(t, 0, off+size, off+8) {
				return s
			}
		}
	}

	remaining := c.ti.AllocSize(t) - off
	if remaining <= 0 {
		panic(abi.Invariantf("integer eightbyte past the value (offset %d)", off))
	}
	if remaining > 8 {
		remaining = 8
	}
	return c.ti.Types.Intern(types.MakeInt(types.Width(remaining * 8)))
}

// sseTypeAtOffset picks the floating type carrying an SSE eightbyte:
// float, <2 x float> or double depending on the live lanes.
func (c Classifier) sseTypeAtOffset(t types.TypeID, off int64) types.TypeID {
	b := c.ti.Types.Builtins()
	s := c.scalarAt(t, off)
	if s != types.NoTypeID {
		tt := c.ti.Types.MustLookup(s)
		switch {
		case tt.Kind == types.KindVector && c.ti.AllocSize(s) == 8:
			return s
		case tt.Kind == types.KindFloat && tt.Width == types.Width64:
			return b.Double
		case tt.Kind == types.KindFloat && tt.Width == types.Width32:
			if next := c.scalarAt(t, off+4); next != types.NoTypeID &&
				c.ti.Types.Kind(next) == types.KindFloat &&
				c.ti.Types.MustLookup(next).Width == types.Width32 {
				return c.ti.Types.Intern(types.MakeVector(b.Float, 2))
			}
			if !c.hasUserDataIn(t, 0, off+4, off+8) {
				return b.Float
			}
		case tt.Kind == types.KindFloat && tt.Width == types.Width16:
			if !c.hasUserDataIn(t, 0, off+2, off+8) {
				return b.Half
			}
		}
	}
	return b.Double
}

// pairType builds the two-eightbyte coercion struct {lo, hi}.
func (c Classifier) pairType(lo, hi types.TypeID) types.TypeID {
	pair := c.ti.Types.RegisterStruct([]types.Field{
		types.MakeField(lo),
		types.MakeField(hi),
	}, false, false)
	if c.ti.AllocSize(lo) <= 8 {
		if l := c.ti.RecordLayout(pair); l.FieldBitOffset[1] != 64 {
			panic(abi.Invariantf("second eightbyte of %s at bit %d",
				c.ti.Types.TypeString(pair), l.FieldBitOffset[1]))
		}
	}
	return pair
}
