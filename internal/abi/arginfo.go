package abi

import (
	"fmt"

	"cabi/internal/types"
)

// ArgKind selects how one argument or return value crosses the ABI
// boundary.
type ArgKind uint8

const (
	// Direct passes the value in registers, bitcast through the
	// coerce-to type.
	Direct ArgKind = iota
	// ExtendInteger is Direct plus sign/zero extension of a small
	// integer.
	ExtendInteger
	// Indirect passes the value through a pointer to a temporary.
	Indirect
	// Ignore passes nothing (empty records, void returns).
	Ignore
	// Expand passes an aggregate as its flattened leaf scalars.
	Expand
	// InAlloca packs the argument into the Windows i386 argument
	// memory struct.
	InAlloca
)

func (k ArgKind) String() string {
	switch k {
	case Direct:
		return "direct"
	case ExtendInteger:
		return "extend"
	case Indirect:
		return "indirect"
	case Ignore:
		return "ignore"
	case Expand:
		return "expand"
	case InAlloca:
		return "inalloca"
	default:
		return fmt.Sprintf("ArgKind(%d)", uint8(k))
	}
}

// ArgInfo is the per-argument classification record. The fields a
// variant does not use are unexported and inaccessible: accessors
// panic when asked for a payload the kind does not carry.
type ArgInfo struct {
	kind            ArgKind
	coerceType      types.TypeID // Direct/ExtendInteger
	paddingType     types.TypeID // optional pre-argument padding slot
	expandType      types.TypeID // Expand
	indirectAlign   int          // bytes; Indirect
	indirectByVal   bool
	indirectRealign bool
	inReg           bool
	paddingInReg    bool
	sretAfterThis   bool
	canBeFlattened  bool
	inAllocaSRet    bool
	inAllocaField   int
}

// GetDirect builds a Direct classification coerced through t.
func GetDirect(t types.TypeID) ArgInfo {
	return ArgInfo{kind: Direct, coerceType: t, canBeFlattened: true}
}

// GetDirectInReg is Direct with the inreg flag.
func GetDirectInReg(t types.TypeID) ArgInfo {
	info := GetDirect(t)
	info.inReg = true
	return info
}

// GetDirectNotFlattened is Direct with struct coercion kept as a
// single first-class aggregate.
func GetDirectNotFlattened(t types.TypeID) ArgInfo {
	info := GetDirect(t)
	info.canBeFlattened = false
	return info
}

// GetExtend builds an ExtendInteger classification for a promotable
// integer of type t.
func GetExtend(t types.TypeID) ArgInfo {
	return ArgInfo{kind: ExtendInteger, coerceType: t, canBeFlattened: true}
}

// GetExtendInReg is GetExtend with the inreg flag.
func GetExtendInReg(t types.TypeID) ArgInfo {
	info := GetExtend(t)
	info.inReg = true
	return info
}

// GetIgnore builds an Ignore classification.
func GetIgnore() ArgInfo {
	return ArgInfo{kind: Ignore}
}

// GetIndirect builds an Indirect classification. align of 0 means the
// natural alignment of the argument type.
func GetIndirect(align int, byVal bool) ArgInfo {
	return ArgInfo{kind: Indirect, indirectAlign: align, indirectByVal: byVal}
}

// GetIndirectRealign is Indirect with callee-side realignment of a
// misaligned incoming byval.
func GetIndirectRealign(align int, byVal bool) ArgInfo {
	info := GetIndirect(align, byVal)
	info.indirectRealign = true
	return info
}

// GetIndirectInReg is Indirect with the pointer itself in a register.
func GetIndirectInReg(align int, byVal bool) ArgInfo {
	info := GetIndirect(align, byVal)
	info.inReg = true
	return info
}

// GetExpand builds an Expand classification of aggregate t.
func GetExpand(t types.TypeID) ArgInfo {
	return ArgInfo{kind: Expand, expandType: t, paddingType: types.NoTypeID}
}

// GetExpandWithPadding is Expand with an optional padding slot emitted
// before the expanded scalars.
func GetExpandWithPadding(t types.TypeID, paddingInReg bool, padding types.TypeID) ArgInfo {
	info := GetExpand(t)
	info.paddingInReg = paddingInReg
	info.paddingType = padding
	return info
}

// GetInAlloca builds an InAlloca classification referring to a field
// of the argument memory struct.
func GetInAlloca(fieldIndex int) ArgInfo {
	return ArgInfo{kind: InAlloca, inAllocaField: fieldIndex}
}

// Kind returns the classification kind.
func (a ArgInfo) Kind() ArgKind { return a.kind }

// IsDirect reports kind == Direct.
func (a ArgInfo) IsDirect() bool { return a.kind == Direct }

// IsExtend reports kind == ExtendInteger.
func (a ArgInfo) IsExtend() bool { return a.kind == ExtendInteger }

// IsIndirect reports kind == Indirect.
func (a ArgInfo) IsIndirect() bool { return a.kind == Indirect }

// IsIgnore reports kind == Ignore.
func (a ArgInfo) IsIgnore() bool { return a.kind == Ignore }

// IsExpand reports kind == Expand.
func (a ArgInfo) IsExpand() bool { return a.kind == Expand }

// IsInAlloca reports kind == InAlloca.
func (a ArgInfo) IsInAlloca() bool { return a.kind == InAlloca }

// CoerceType returns the coerce-to type of a Direct/Extend record.
func (a ArgInfo) CoerceType() types.TypeID {
	if a.kind != Direct && a.kind != ExtendInteger {
		panic(Invariantf("coerce type requested on %s", a.kind))
	}
	return a.coerceType
}

// PaddingType returns the padding slot type, NoTypeID when absent.
func (a ArgInfo) PaddingType() types.TypeID { return a.paddingType }

// PaddingInReg reports whether the padding slot carries inreg.
func (a ArgInfo) PaddingInReg() bool { return a.paddingInReg }

// ExpandType returns the aggregate an Expand record flattens.
func (a ArgInfo) ExpandType() types.TypeID {
	if a.kind != Expand {
		panic(Invariantf("expand type requested on %s", a.kind))
	}
	return a.expandType
}

// IndirectAlign returns the explicit byval alignment in bytes.
func (a ArgInfo) IndirectAlign() int {
	if a.kind != Indirect {
		panic(Invariantf("indirect align requested on %s", a.kind))
	}
	return a.indirectAlign
}

// IndirectByVal reports whether the pointee is passed by value.
func (a ArgInfo) IndirectByVal() bool {
	if a.kind != Indirect {
		panic(Invariantf("indirect byval requested on %s", a.kind))
	}
	return a.indirectByVal
}

// IndirectRealign reports whether the callee must realign the pointee.
func (a ArgInfo) IndirectRealign() bool {
	if a.kind != Indirect {
		panic(Invariantf("indirect realign requested on %s", a.kind))
	}
	return a.indirectRealign
}

// InReg reports whether the argument carries the inreg attribute.
func (a ArgInfo) InReg() bool { return a.inReg }

// CanBeFlattened reports whether a struct coercion may be split into
// one IR argument per member.
func (a ArgInfo) CanBeFlattened() bool { return a.canBeFlattened }

// SRetAfterThis reports whether the hidden sret pointer follows the
// `this` argument.
func (a ArgInfo) SRetAfterThis() bool { return a.sretAfterThis }

// WithSRetAfterThis marks an Indirect return as following `this`.
func (a ArgInfo) WithSRetAfterThis() ArgInfo {
	if a.kind != Indirect {
		panic(Invariantf("sret-after-this on %s", a.kind))
	}
	a.sretAfterThis = true
	return a
}

// InAllocaSRet reports whether an InAlloca return slot yields the sret
// pointer as the call result.
func (a ArgInfo) InAllocaSRet() bool { return a.inAllocaSRet }

// InAllocaFieldIndex returns the argument-memory field of an InAlloca
// record.
func (a ArgInfo) InAllocaFieldIndex() int {
	if a.kind != InAlloca {
		panic(Invariantf("inalloca field requested on %s", a.kind))
	}
	return a.inAllocaField
}

func (a ArgInfo) String() string {
	switch a.kind {
	case Direct, ExtendInteger:
		return fmt.Sprintf("%s(type#%d)", a.kind, a.coerceType)
	case Indirect:
		return fmt.Sprintf("indirect(align=%d byval=%v)", a.indirectAlign, a.indirectByVal)
	case Expand:
		return fmt.Sprintf("expand(type#%d)", a.expandType)
	default:
		return a.kind.String()
	}
}
