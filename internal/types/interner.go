package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Void    TypeID
	Bool    TypeID
	Int8    TypeID
	Int16   TypeID
	Int32   TypeID
	Int64   TypeID
	Int128  TypeID
	UInt8   TypeID
	UInt16  TypeID
	UInt32  TypeID
	UInt64  TypeID
	UInt128 TypeID
	Half    TypeID
	Float   TypeID
	Double  TypeID
	X86FP80 TypeID
	FP128   TypeID
	Ptr     TypeID // pointer in address space 0
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	builtins Builtins
	structs  []StructInfo
	unions   []UnionInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[Type]TypeID, 64),
	}
	in.structs = append(in.structs, StructInfo{}) // reserve 0 as invalid sentinel
	in.unions = append(in.unions, UnionInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int8 = in.Intern(MakeInt(Width8))
	in.builtins.Int16 = in.Intern(MakeInt(Width16))
	in.builtins.Int32 = in.Intern(MakeInt(Width32))
	in.builtins.Int64 = in.Intern(MakeInt(Width64))
	in.builtins.Int128 = in.Intern(MakeInt(Width128))
	in.builtins.UInt8 = in.Intern(MakeUint(Width8))
	in.builtins.UInt16 = in.Intern(MakeUint(Width16))
	in.builtins.UInt32 = in.Intern(MakeUint(Width32))
	in.builtins.UInt64 = in.Intern(MakeUint(Width64))
	in.builtins.UInt128 = in.Intern(MakeUint(Width128))
	in.builtins.Half = in.Intern(MakeFloat(Width16))
	in.builtins.Float = in.Intern(MakeFloat(Width32))
	in.builtins.Double = in.Intern(MakeFloat(Width64))
	in.builtins.X86FP80 = in.Intern(MakeFloat(Width80))
	in.builtins.FP128 = in.Intern(MakeFloat(Width128))
	in.builtins.Ptr = in.Intern(MakePointer(0))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup returns the descriptor for a TypeID and panics when the
// handle is unknown.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Errorf("unknown type id %d", id))
	}
	return tt
}

// Kind returns the kind for a TypeID, KindInvalid for unknown handles.
func (in *Interner) Kind(id TypeID) Kind {
	tt, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}

// IsVoid reports whether the handle identifies the void type.
func (in *Interner) IsVoid(id TypeID) bool { return in.Kind(id) == KindVoid }

// IsInteger reports whether the handle is a fixed-width integer or bool.
func (in *Interner) IsInteger(id TypeID) bool {
	switch in.Kind(id) {
	case KindBool, KindInt, KindUint:
		return true
	default:
		return false
	}
}

// IsSignedInteger reports whether the handle is a signed integer.
func (in *Interner) IsSignedInteger(id TypeID) bool { return in.Kind(id) == KindInt }

// IsFloat reports whether the handle is a floating-point type.
func (in *Interner) IsFloat(id TypeID) bool { return in.Kind(id) == KindFloat }

// IsPointer reports whether the handle is a pointer.
func (in *Interner) IsPointer(id TypeID) bool { return in.Kind(id) == KindPointer }

// IsAggregate reports whether the handle is a struct, union, array or
// complex type.
func (in *Interner) IsAggregate(id TypeID) bool {
	switch in.Kind(id) {
	case KindStruct, KindUnion, KindArray, KindComplex:
		return true
	default:
		return false
	}
}

// IsRecord reports whether the handle is a struct or union.
func (in *Interner) IsRecord(id TypeID) bool {
	k := in.Kind(id)
	return k == KindStruct || k == KindUnion
}
