package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of source types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindInt
	KindUint
	KindFloat
	KindPointer
	KindArray
	KindVector
	KindComplex
	KindStruct
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindVector:
		return "vector"
	case KindComplex:
		return "complex"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers and floats in bits.
type Width uint8

const (
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
	Width80  Width = 80
	Width128 Width = 128
)

// Type is a compact descriptor for any supported type.
//
// Struct and union descriptors carry their field lists in side tables
// referenced through Payload; every RegisterStruct/RegisterUnion call
// yields a distinct TypeID, so record types have identity semantics
// while all other kinds are structurally interned.
type Type struct {
	Kind      Kind
	Elem      TypeID // element type for array/vector/complex
	Count     uint32 // element count for array/vector
	Width     Width  // numeric precision for int/uint/float
	AddrSpace uint32 // for pointers
	Payload   uint32 // side-table slot for struct/union
}

// Descriptor helpers ---------------------------------------------------------

// MakeInt describes a signed integer of the given width.
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer of the given width.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type. Width 16 is half, 80 is
// the x87 extended type, 128 is IEEE quad.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakePointer describes a pointer in the given address space. Pointee
// types never influence passing decisions, so they are not recorded.
func MakePointer(addrSpace uint32) Type {
	return Type{Kind: KindPointer, AddrSpace: addrSpace}
}

// MakeArray describes an array of count elements.
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakeVector describes a SIMD vector of count lanes.
func MakeVector(elem TypeID, count uint32) Type {
	return Type{Kind: KindVector, Elem: elem, Count: count}
}

// MakeComplex describes a complex number over the given floating-point
// element type.
func MakeComplex(elem TypeID) Type {
	return Type{Kind: KindComplex, Elem: elem}
}
