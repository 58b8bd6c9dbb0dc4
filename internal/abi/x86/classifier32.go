package x86

import (
	"cabi/internal/abi"
	"cabi/internal/layout"
	"cabi/internal/target"
	"cabi/internal/types"
)

const minABIStackAlign32 = 4

// ccState tracks the register budget of one i386 classification pass.
type ccState struct {
	cc          types.CallingConvention
	freeRegs    int64
	freeSSERegs int64
}

// X86_32Classifier implements the register-pressure-driven i386
// classification for cdecl, stdcall, fastcall, thiscall, pascal and
// vectorcall.
type X86_32Classifier struct {
	ti      *layout.TypeInfo
	triple  target.Triple
	regParm int64
}

// NewX86_32Classifier builds an i386 classifier. regParm is the
// regparm(N) default for conventions without their own register file.
func NewX86_32Classifier(ti *layout.TypeInfo, triple target.Triple, regParm int64) X86_32Classifier {
	return X86_32Classifier{ti: ti, triple: triple, regParm: regParm}
}

func (c X86_32Classifier) isDarwinVectorABI() bool {
	return c.triple.IsOSDarwin()
}

// isSmallStructInRegABI reports whether register-sized records return
// in registers rather than through a hidden sret pointer.
func (c X86_32Classifier) isSmallStructInRegABI() bool {
	if c.triple.IsOSDarwin() {
		return true
	}
	switch c.triple.OS {
	case target.OSDragonFly, target.OSFreeBSD, target.OSOpenBSD, target.OSWindows:
		return true
	default:
		return false
	}
}

func (c X86_32Classifier) isWin32StructABI() bool {
	return c.triple.IsWin32MSVC()
}

// shouldReturnTypeInRegister determines whether a type is returned in
// a register under the small-struct-in-register ABIs.
func (c X86_32Classifier) shouldReturnTypeInRegister(t types.TypeID) bool {
	bits := c.ti.SizeBits(t)
	if !isRegisterSizeBits(bits) {
		return false
	}

	tt := c.ti.Types.MustLookup(t)

	if tt.Kind == types.KindVector {
		// 64- and 128-bit vectors inside structures are not returned
		// in registers.
		return bits != 64 && bits != 128
	}

	switch tt.Kind {
	case types.KindBool, types.KindInt, types.KindUint, types.KindFloat,
		types.KindPointer, types.KindComplex:
		return true
	case types.KindArray:
		// Arrays are treated like records.
		return c.shouldReturnTypeInRegister(tt.Elem)
	case types.KindStruct, types.KindUnion:
	default:
		return false
	}

	// A record returns in a register when all its fields would.
	for _, f := range c.ti.Types.RecordFields(t) {
		if isEmptyField(c.ti, f, true) {
			continue
		}
		if f.BitField {
			continue
		}
		if !c.shouldReturnTypeInRegister(f.Type) {
			return false
		}
	}
	return true
}

// getIndirectReturnResult builds the hidden-sret classification; the
// hidden pointer itself consumes one integer register when available.
func (c X86_32Classifier) getIndirectReturnResult(state *ccState) abi.ArgInfo {
	if state.freeRegs > 0 {
		state.freeRegs--
		return abi.GetIndirectInReg(0, false)
	}
	return abi.GetIndirect(0, false)
}

func (c X86_32Classifier) intTypeOfSize(bits int64) types.TypeID {
	return c.ti.Types.Intern(types.MakeUint(types.Width(bits)))
}

// ClassifyReturnType classifies the i386 return value.
func (c X86_32Classifier) ClassifyReturnType(t types.TypeID, state *ccState) abi.ArgInfo {
	if c.ti.Types.IsVoid(t) {
		return abi.GetIgnore()
	}

	if state.cc == types.CCVectorCall {
		if _, _, ok := isHomogeneousAggregate(c.ti, t); ok {
			// The IR struct type for an HVA lowers properly as-is.
			return abi.GetDirect(t)
		}
	}

	tt := c.ti.Types.MustLookup(t)

	if tt.Kind == types.KindVector {
		if c.isDarwinVectorABI() {
			bits := c.ti.SizeBits(t)
			// 128-bit vectors return in registers; pick a type the
			// backend likes.
			if bits == 128 {
				b := c.ti.Types.Builtins()
				return abi.GetDirect(c.ti.Types.Intern(types.MakeVector(b.Int64, 2)))
			}
			if bits == 8 || bits == 16 || bits == 32 ||
				(bits == 64 && tt.Count == 1) {
				return abi.GetDirect(c.intTypeOfSize(bits))
			}
			return c.getIndirectReturnResult(state)
		}
		return abi.GetDirect(t)
	}

	if c.ti.Types.IsAggregate(t) {
		if tt.Kind == types.KindStruct && c.ti.Types.HasFlexibleArrayMember(t) {
			// Structures with flexible arrays are always indirect.
			return c.getIndirectReturnResult(state)
		}

		// If the target keeps structs on the stack, only complex
		// still returns in registers.
		if !c.isSmallStructInRegABI() && tt.Kind != types.KindComplex {
			return c.getIndirectReturnResult(state)
		}

		if c.shouldReturnTypeInRegister(t) {
			// A single float/double or pointer element returns in its
			// own register class. (MSVC keeps the integer form.)
			if elem := structSingleElement(c.ti, t); elem != types.NoTypeID {
				elemKind := c.ti.Types.Kind(elem)
				if (!c.isWin32StructABI() && elemKind == types.KindFloat) ||
					elemKind == types.KindPointer {
					return abi.GetDirect(elem)
				}
			}
			return abi.GetDirect(c.intTypeOfSize(c.ti.SizeBits(t)))
		}

		return c.getIndirectReturnResult(state)
	}

	if c.ti.IsPromotableInteger(t) {
		return abi.GetExtend(t)
	}
	return abi.GetDirect(t)
}

func (c X86_32Classifier) isSSEVectorType(t types.TypeID) bool {
	return c.ti.Types.Kind(t) == types.KindVector && c.ti.SizeBits(t) == 128
}

func (c X86_32Classifier) isRecordWithSSEVectorType(t types.TypeID) bool {
	if c.ti.Types.Kind(t) != types.KindStruct {
		return false
	}
	for _, f := range c.ti.Types.RecordFields(t) {
		if f.BitField {
			continue
		}
		if c.isSSEVectorType(f.Type) || c.isRecordWithSSEVectorType(f.Type) {
			return true
		}
	}
	return false
}

// typeStackAlign returns the explicit stack alignment of a byval
// argument, 0 when the default suffices.
func (c X86_32Classifier) typeStackAlign(t types.TypeID, align int64) int64 {
	if align <= minABIStackAlign32 {
		return 0 // Use default alignment.
	}
	// Off Darwin the stack type alignment is always 4.
	if !c.isDarwinVectorABI() {
		return minABIStackAlign32
	}
	if align >= 16 && (c.isSSEVectorType(t) || c.isRecordWithSSEVectorType(t)) {
		return 16
	}
	return minABIStackAlign32
}

func (c X86_32Classifier) getIndirectResult(t types.TypeID, byVal bool, state *ccState) abi.ArgInfo {
	if !byVal {
		if state.freeRegs > 0 {
			state.freeRegs-- // Non-byval indirects just use one pointer.
			return abi.GetIndirectInReg(0, false)
		}
		return abi.GetIndirect(0, false)
	}

	typeAlign := int64(c.ti.ABIAlign(t))
	stackAlign := c.typeStackAlign(t, typeAlign)
	if stackAlign == 0 {
		return abi.GetIndirect(4, true)
	}

	// Realign the argument when its alignment exceeds the stack slot.
	if typeAlign > stackAlign {
		return abi.GetIndirectRealign(int(stackAlign), true)
	}
	return abi.GetIndirect(int(stackAlign), true)
}

type register32Class uint8

const (
	integer32 register32Class = iota
	float32Class
)

func (c X86_32Classifier) classify(t types.TypeID) register32Class {
	elem := structSingleElement(c.ti, t)
	if elem == types.NoTypeID {
		elem = t
	}
	tt := c.ti.Types.MustLookup(elem)
	if tt.Kind == types.KindFloat &&
		(tt.Width == types.Width32 || tt.Width == types.Width64) {
		return float32Class
	}
	return integer32
}

// shouldUseInReg decides whether an argument consumes the inreg
// register file; needsPadding is set when fastcall/vectorcall burn the
// registers without using them.
func (c X86_32Classifier) shouldUseInReg(t types.TypeID, state *ccState) (useInReg, needsPadding bool) {
	if c.classify(t) == float32Class {
		return false, false
	}

	size := c.ti.SizeBits(t)
	sizeInRegs := (size + 31) / 32
	if sizeInRegs == 0 {
		return false, false
	}

	if sizeInRegs > state.freeRegs {
		state.freeRegs = 0
		return false, false
	}
	state.freeRegs -= sizeInRegs

	if state.cc == types.CCFastCall || state.cc == types.CCVectorCall {
		if size > 32 {
			return false, false
		}
		kind := c.ti.Types.Kind(t)
		if kind == types.KindBool || kind == types.KindInt ||
			kind == types.KindUint || kind == types.KindPointer {
			return true, false
		}
		return false, state.freeRegs > 0
	}

	return true, false
}

// isX86MMXType reports an MMX-register vector: 64 bits of integer
// lanes narrower than 64 bits.
func (c X86_32Classifier) isX86MMXType(t types.TypeID) bool {
	tt := c.ti.Types.MustLookup(t)
	if tt.Kind != types.KindVector || c.ti.SizeBits(t) != 64 {
		return false
	}
	elem := c.ti.Types.MustLookup(tt.Elem)
	return (elem.Kind == types.KindInt || elem.Kind == types.KindUint) &&
		elem.Width != types.Width64
}

func (c X86_32Classifier) is32Or64BitBasicType(t types.TypeID) bool {
	// Complex counts as its element type.
	if c.ti.Types.Kind(t) == types.KindComplex {
		t = c.ti.Types.MustLookup(t).Elem
	}
	switch c.ti.Types.Kind(t) {
	case types.KindBool, types.KindInt, types.KindUint,
		types.KindFloat, types.KindPointer:
	default:
		return false
	}
	bits := c.ti.SizeBits(t)
	return bits == 32 || bits == 64
}

// canExpandIndirectArgument checks that a struct's stack layout equals
// its expanded scalar layout: every field a 32/64-bit basic type, no
// bit-fields, no holes.
func (c X86_32Classifier) canExpandIndirectArgument(t types.TypeID) bool {
	if c.ti.Types.Kind(t) != types.KindStruct {
		return false
	}

	var size int64
	for _, f := range c.ti.Types.RecordFields(t) {
		if f.BitField {
			return false
		}
		if !c.is32Or64BitBasicType(f.Type) {
			return false
		}
		size += c.ti.AllocSize(f.Type)
	}

	// Make sure there are no holes.
	return size == c.ti.AllocSize(t)
}

// ClassifyArgumentType classifies one i386 argument.
func (c X86_32Classifier) ClassifyArgumentType(t types.TypeID, state *ccState) abi.ArgInfo {
	b := c.ti.Types.Builtins()

	// vectorcall passes homogeneous vector aggregates in SSE registers.
	if state.cc == types.CCVectorCall {
		if _, count, ok := isHomogeneousAggregate(c.ti, t); ok {
			if state.freeSSERegs >= count {
				state.freeSSERegs -= count
				kind := c.ti.Types.Kind(t)
				if kind == types.KindFloat || kind == types.KindVector ||
					c.ti.Types.IsInteger(t) {
					return abi.GetDirect(t)
				}
				return abi.GetExpand(t)
			}
			return c.getIndirectResult(t, false, state)
		}
	}

	if c.ti.Types.IsAggregate(t) {
		if c.ti.Types.Kind(t) == types.KindStruct {
			// Structs are always byval on win32, regardless of content.
			if c.isWin32StructABI() {
				return c.getIndirectResult(t, true, state)
			}
			// Structures with flexible arrays are always indirect.
			if c.ti.Types.HasFlexibleArrayMember(t) {
				return c.getIndirectResult(t, true, state)
			}
		}

		// Ignore empty structs/unions.
		if isEmptyRecord(c.ti, t, true) {
			return abi.GetIgnore()
		}

		useInReg, needsPadding := c.shouldUseInReg(t, state)
		if useInReg {
			sizeInRegs := (c.ti.SizeBits(t) + 31) / 32
			fields := make([]types.Field, sizeInRegs)
			for i := range fields {
				fields[i] = types.MakeField(b.Int32)
			}
			return abi.GetDirectInReg(c.ti.Types.RegisterStruct(fields, false, false))
		}

		paddingType := types.NoTypeID
		if needsPadding {
			paddingType = b.Int32
		}

		// Expand small records whose stack layout matches the struct:
		// the backend cannot remove byval, which inhibits optimization.
		if c.ti.SizeBits(t) <= 4*32 && c.canExpandIndirectArgument(t) {
			return abi.GetExpandWithPadding(t,
				state.cc == types.CCFastCall || state.cc == types.CCVectorCall,
				paddingType)
		}

		return c.getIndirectResult(t, true, state)
	}

	if c.ti.Types.Kind(t) == types.KindVector {
		// On Darwin, small vectors pass as the matching integer type.
		if c.isDarwinVectorABI() {
			bits := c.ti.SizeBits(t)
			if bits == 8 || bits == 16 || bits == 32 ||
				(bits == 64 && c.ti.Types.MustLookup(t).Count == 1) {
				return abi.GetDirect(c.intTypeOfSize(bits))
			}
		}
		if c.isX86MMXType(t) {
			return abi.GetDirect(b.Int64)
		}
		return abi.GetDirect(t)
	}

	useInReg, _ := c.shouldUseInReg(t, state)
	if c.ti.IsPromotableInteger(t) {
		if useInReg {
			return abi.GetExtendInReg(t)
		}
		return abi.GetExtend(t)
	}
	if useInReg {
		return abi.GetDirectInReg(t)
	}
	return abi.GetDirect(t)
}

// ClassifyFunctionType classifies an i386 function: return first, then
// every argument in order against the convention's register budget.
func (c X86_32Classifier) ClassifyFunctionType(ft types.FunctionType, argTypes []types.TypeID) []abi.ArgInfo {
	state := ccState{cc: ft.CallConv}
	switch ft.CallConv {
	case types.CCFastCall:
		state.freeRegs = 2
	case types.CCVectorCall:
		state.freeRegs = 2
		state.freeSSERegs = 6
	case types.CCThisCall:
		state.freeRegs = 1
	default:
		state.freeRegs = c.regParm
	}

	out := make([]abi.ArgInfo, 0, len(argTypes)+1)
	out = append(out, c.ClassifyReturnType(ft.Return, &state))

	usedInAlloca := false
	for _, argType := range argTypes {
		info := c.ClassifyArgumentType(argType, &state)
		usedInAlloca = usedInAlloca || info.IsInAlloca()
		out = append(out, info)
	}

	// Arguments that need inalloca would require a rewrite pass over
	// all memory arguments; the classifier never produces them for C
	// types, so reaching one is fatal.
	if usedInAlloca {
		panic(abi.Unimplementedf("inalloca argument rewriting"))
	}
	return out
}
