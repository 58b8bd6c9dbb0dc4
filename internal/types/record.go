package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Field describes a struct or union member. Bit-fields carry an
// explicit width; a zero-width bit-field is layout-only and never
// participates in passing decisions.
type Field struct {
	Type     TypeID
	BitField bool
	BitWidth uint32 // meaningful only when BitField is set
}

// MakeField describes an ordinary (non-bit-field) member.
func MakeField(t TypeID) Field {
	return Field{Type: t}
}

// MakeBitField describes a bit-field member of the given width.
func MakeBitField(t TypeID, width uint32) Field {
	return Field{Type: t, BitField: true, BitWidth: width}
}

// StructInfo stores the member list and layout flags of a struct type.
type StructInfo struct {
	Fields        []Field
	Packed        bool
	FlexibleArray bool // trailing flexible array member
}

// UnionInfo stores the member list of a union type.
type UnionInfo struct {
	Fields []Field
}

// RegisterStruct creates a struct type. Each call yields a distinct
// TypeID; record types are nominal.
func (in *Interner) RegisterStruct(fields []Field, packed, flexibleArray bool) TypeID {
	slot := in.appendStructInfo(StructInfo{
		Fields:        slices.Clone(fields),
		Packed:        packed,
		FlexibleArray: flexibleArray,
	})
	return in.internRaw(Type{Kind: KindStruct, Payload: slot})
}

// RegisterUnion creates a union type.
func (in *Interner) RegisterUnion(fields []Field) TypeID {
	slot := in.appendUnionInfo(UnionInfo{Fields: slices.Clone(fields)})
	return in.internRaw(Type{Kind: KindUnion, Payload: slot})
}

// StructInfo retrieves struct metadata by TypeID.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindStruct {
		return nil, false
	}
	if int(tt.Payload) >= len(in.structs) {
		return nil, false
	}
	return &in.structs[tt.Payload], true
}

// UnionInfo retrieves union metadata by TypeID.
func (in *Interner) UnionInfo(id TypeID) (*UnionInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindUnion {
		return nil, false
	}
	if int(tt.Payload) >= len(in.unions) {
		return nil, false
	}
	return &in.unions[tt.Payload], true
}

// RecordFields returns the member list of a struct or union.
func (in *Interner) RecordFields(id TypeID) []Field {
	if info, ok := in.StructInfo(id); ok {
		return info.Fields
	}
	if info, ok := in.UnionInfo(id); ok {
		return info.Fields
	}
	return nil
}

// HasFlexibleArrayMember reports whether a struct ends in a flexible
// array member.
func (in *Interner) HasFlexibleArrayMember(id TypeID) bool {
	info, ok := in.StructInfo(id)
	return ok && info.FlexibleArray
}

func (in *Interner) appendStructInfo(info StructInfo) uint32 {
	in.structs = append(in.structs, info)
	slot, err := safecast.Conv[uint32](len(in.structs) - 1)
	if err != nil {
		panic(fmt.Errorf("struct info overflow: %w", err))
	}
	return slot
}

func (in *Interner) appendUnionInfo(info UnionInfo) uint32 {
	in.unions = append(in.unions, info)
	slot, err := safecast.Conv[uint32](len(in.unions) - 1)
	if err != nil {
		panic(fmt.Errorf("union info overflow: %w", err))
	}
	return slot
}
