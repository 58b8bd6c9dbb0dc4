// Package ir models the machine-level IR type system the ABI lowers
// into, the opaque value/builder interfaces supplied by the driver, and
// the data layout used to size IR types.
package ir

import (
	"fmt"
	"strings"
)

// Kind enumerates IR type kinds.
type Kind uint8

const (
	KindVoid Kind = iota
	KindInt
	KindHalf
	KindFloat
	KindDouble
	KindX86FP80
	KindFP128
	KindPointer
	KindStruct
	KindArray
	KindVector
)

// Type is an immutable IR type node. Types are created through a
// TypeBuilder, which canonicalizes them so that pointer comparison
// works within one builder; Equal compares structurally and works
// across builders.
type Type struct {
	kind      Kind
	bits      int   // integer width
	addrSpace int   // pointer address space
	count     int   // array/vector length
	elem      *Type // pointer pointee, array/vector element
	fields    []*Type
}

// Kind returns the type kind.
func (t *Type) Kind() Kind { return t.kind }

// IsVoid reports whether the type is void.
func (t *Type) IsVoid() bool { return t == nil || t.kind == KindVoid }

// IsInt reports whether the type is an integer.
func (t *Type) IsInt() bool { return t != nil && t.kind == KindInt }

// IsPointer reports whether the type is a pointer.
func (t *Type) IsPointer() bool { return t != nil && t.kind == KindPointer }

// IsStruct reports whether the type is a struct.
func (t *Type) IsStruct() bool { return t != nil && t.kind == KindStruct }

// IsFloating reports whether the type is any floating-point type.
func (t *Type) IsFloating() bool {
	if t == nil {
		return false
	}
	switch t.kind {
	case KindHalf, KindFloat, KindDouble, KindX86FP80, KindFP128:
		return true
	default:
		return false
	}
}

// IntBits returns the width of an integer type.
func (t *Type) IntBits() int {
	if !t.IsInt() {
		panic(fmt.Errorf("IntBits on %s", t))
	}
	return t.bits
}

// AddrSpace returns the address space of a pointer type.
func (t *Type) AddrSpace() int {
	if !t.IsPointer() {
		panic(fmt.Errorf("AddrSpace on %s", t))
	}
	return t.addrSpace
}

// Elem returns the element type of a pointer, array or vector.
func (t *Type) Elem() *Type {
	switch t.kind {
	case KindPointer, KindArray, KindVector:
		return t.elem
	}
	panic(fmt.Errorf("Elem on %s", t))
}

// Count returns the length of an array or vector type.
func (t *Type) Count() int {
	switch t.kind {
	case KindArray, KindVector:
		return t.count
	}
	panic(fmt.Errorf("Count on %s", t))
}

// Fields returns the member types of a struct type.
func (t *Type) Fields() []*Type {
	if !t.IsStruct() {
		panic(fmt.Errorf("Fields on %s", t))
	}
	return t.fields
}

// Equal compares two types structurally.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KindInt:
		return t.bits == o.bits
	case KindPointer:
		return t.addrSpace == o.addrSpace && t.elem.Equal(o.elem)
	case KindArray, KindVector:
		return t.count == o.count && t.elem.Equal(o.elem)
	case KindStruct:
		if len(t.fields) != len(o.fields) {
			return false
		}
		for i := range t.fields {
			if !t.fields[i].Equal(o.fields[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders the type in LLVM-like syntax.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.kind {
	case KindVoid:
		return "void"
	case KindInt:
		return fmt.Sprintf("i%d", t.bits)
	case KindHalf:
		return "half"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindX86FP80:
		return "x86_fp80"
	case KindFP128:
		return "fp128"
	case KindPointer:
		if t.addrSpace != 0 {
			return fmt.Sprintf("%s addrspace(%d)*", t.elem, t.addrSpace)
		}
		return t.elem.String() + "*"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", t.count, t.elem)
	case KindVector:
		return fmt.Sprintf("<%d x %s>", t.count, t.elem)
	case KindStruct:
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.String()
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return fmt.Sprintf("Kind(%d)", t.kind)
	}
}
