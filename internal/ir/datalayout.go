package ir

import "fmt"

// DataLayout sizes IR types for one target. It mirrors the handful of
// x86 data-layout facts the lowering needs; replacing it changes
// layout, not policy.
type DataLayout struct {
	PtrBytes  int  // pointer size in bytes
	I64Align  int  // alignment of i64 (8 on x86-64, 4 on i386)
	F64Align  int  // alignment of double (8 on x86-64, 4 on i386 Linux)
	X87Bytes  int  // alloc size of x86_fp80 (16 on x86-64, 12 on i386)
	X87Align  int  // alignment of x86_fp80
	BigEndian bool // false on every x86 target
}

// X86_64DataLayout is the System V AMD64 layout.
func X86_64DataLayout() DataLayout {
	return DataLayout{PtrBytes: 8, I64Align: 8, F64Align: 8, X87Bytes: 16, X87Align: 16}
}

// X86_32DataLayout is the i386 layout (SysV: 4-byte i64/double align).
func X86_32DataLayout() DataLayout {
	return DataLayout{PtrBytes: 4, I64Align: 4, F64Align: 4, X87Bytes: 12, X87Align: 4}
}

// StoreSize returns the number of bytes a store of t writes.
func (dl DataLayout) StoreSize(t *Type) int64 {
	switch t.Kind() {
	case KindVoid:
		return 0
	case KindInt:
		return int64((t.IntBits() + 7) / 8)
	case KindHalf:
		return 2
	case KindFloat:
		return 4
	case KindDouble:
		return 8
	case KindX86FP80:
		return 10
	case KindFP128:
		return 16
	case KindPointer:
		return int64(dl.PtrBytes)
	case KindArray:
		return dl.AllocSize(t.Elem()) * int64(t.Count())
	case KindVector:
		return dl.StoreSize(t.Elem()) * int64(t.Count())
	case KindStruct:
		size, _ := dl.structLayout(t, nil)
		return size
	default:
		panic(fmt.Errorf("store size of %s", t))
	}
}

// AllocSize returns the size in bytes t occupies in memory, including
// trailing padding up to its alignment.
func (dl DataLayout) AllocSize(t *Type) int64 {
	if t.Kind() == KindX86FP80 {
		return int64(dl.X87Bytes)
	}
	size := dl.StoreSize(t)
	return alignTo(size, int64(dl.ABIAlign(t)))
}

// ABIAlign returns the ABI alignment of t in bytes.
func (dl DataLayout) ABIAlign(t *Type) int {
	switch t.Kind() {
	case KindVoid:
		return 1
	case KindInt:
		bytes := (t.IntBits() + 7) / 8
		switch {
		case bytes <= 1:
			return 1
		case bytes <= 2:
			return 2
		case bytes <= 4:
			return 4
		case bytes <= 8:
			return dl.I64Align
		default:
			return 16
		}
	case KindHalf:
		return 2
	case KindFloat:
		return 4
	case KindDouble:
		return dl.F64Align
	case KindX86FP80:
		return dl.X87Align
	case KindFP128:
		return 16
	case KindPointer:
		return dl.PtrBytes
	case KindArray:
		return dl.ABIAlign(t.Elem())
	case KindVector:
		size := dl.StoreSize(t)
		align := int64(1)
		for align < size && align < 16 {
			align <<= 1
		}
		return int(align)
	case KindStruct:
		align := 1
		for _, f := range t.Fields() {
			if fa := dl.ABIAlign(f); fa > align {
				align = fa
			}
		}
		return align
	default:
		panic(fmt.Errorf("alignment of %s", t))
	}
}

// StructOffsets returns the byte offset of every member of a struct
// type under this layout.
func (dl DataLayout) StructOffsets(t *Type) []int64 {
	offsets := make([]int64, 0, len(t.Fields()))
	_, offsets = dl.structLayout(t, offsets)
	return offsets
}

func (dl DataLayout) structLayout(t *Type, offsets []int64) (int64, []int64) {
	var size int64
	for _, f := range t.Fields() {
		size = alignTo(size, int64(dl.ABIAlign(f)))
		if offsets != nil {
			offsets = append(offsets, size)
		}
		size += dl.AllocSize(f)
	}
	size = alignTo(size, int64(dl.ABIAlign(t)))
	return size, offsets
}

func alignTo(v, align int64) int64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}
