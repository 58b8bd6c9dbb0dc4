package x86

import (
	"cabi/internal/abi"
	"cabi/internal/layout"
	"cabi/internal/types"
)

// The SysV integer/vector argument register files.
const (
	sysVIntRegs = 6 // rdi, rsi, rdx, rcx, r8, r9
	sysVSSERegs = 8 // xmm0..xmm7
)

// Classifier implements the System V AMD64 parameter classification.
type Classifier struct {
	ti *layout.TypeInfo
}

// NewClassifier builds a SysV classifier over the given type info.
func NewClassifier(ti *layout.TypeInfo) Classifier {
	return Classifier{ti: ti}
}

// Classify runs the eightbyte classification of one value located at
// bit offset 0.
func (c Classifier) Classify(t types.TypeID, isNamedArg bool) Classification {
	var cl Classification
	c.classifyAt(t, 0, &cl, isNamedArg)
	// Post-merge cleanup applies to aggregates only; scalar pairs
	// like the x87 classes describe single values.
	switch c.ti.Types.Kind(t) {
	case types.KindStruct, types.KindUnion, types.KindArray:
		cl.postMerge(c.ti.AllocSize(t))
	}
	// A value with a Memory eightbyte is passed in memory as a whole.
	if cl.Lo == Memory || cl.Hi == Memory {
		cl.Lo, cl.Hi = Memory, Memory
	}
	return cl
}

// classifyAt merges the classes of t, located at the given bit offset,
// into cl. Aggregates recurse into their members at their layout
// offsets; the containing eightbyte's class is the merge of the
// contained classes.
func (c Classifier) classifyAt(t types.TypeID, bitOffset int64, cl *Classification, isNamedArg bool) {
	tt := c.ti.Types.MustLookup(t)
	switch tt.Kind {
	case types.KindVoid:
		// NoClass.

	case types.KindBool, types.KindPointer:
		cl.mergeAt(bitOffset, Integer)

	case types.KindInt, types.KindUint:
		if tt.Width <= types.Width64 {
			cl.mergeAt(bitOffset, Integer)
		} else {
			// __int128 occupies both eightbytes.
			cl.mergeAt(bitOffset, Integer)
			cl.mergeAt(bitOffset+64, Integer)
		}

	case types.KindFloat:
		switch tt.Width {
		case types.Width16, types.Width32, types.Width64:
			cl.mergeAt(bitOffset, SSE)
		case types.Width80:
			cl.mergeAt(bitOffset, X87)
			cl.mergeAt(bitOffset+64, X87Up)
		case types.Width128:
			cl.mergeAt(bitOffset, SSE)
			cl.mergeAt(bitOffset+64, SSEUp)
		}

	case types.KindComplex:
		elem := c.ti.Types.MustLookup(tt.Elem)
		switch elem.Width {
		case types.Width16, types.Width32:
			cl.mergeAt(bitOffset, SSE)
			cl.mergeAt(bitOffset+2*c.ti.SizeBits(tt.Elem)-1, SSE)
		case types.Width64:
			cl.mergeAt(bitOffset, SSE)
			cl.mergeAt(bitOffset+64, SSE)
		case types.Width80:
			cl.mergeAt(bitOffset, ComplexX87)
		case types.Width128:
			cl.mergeAt(bitOffset, Memory)
		}

	case types.KindVector:
		c.classifyVectorAt(t, bitOffset, cl)

	case types.KindArray:
		size := c.ti.AllocSize(t)
		if size > 16 {
			cl.mergeAt(bitOffset, Memory)
			return
		}
		elemSize := c.ti.AllocSize(tt.Elem)
		for i := int64(0); i < int64(tt.Count); i++ {
			c.classifyAt(tt.Elem, bitOffset+i*elemSize*8, cl, isNamedArg)
		}

	case types.KindStruct:
		size := c.ti.AllocSize(t)
		if size > 16 || c.ti.Types.HasFlexibleArrayMember(t) {
			cl.mergeAt(bitOffset, Memory)
			return
		}
		l := c.ti.RecordLayout(t)
		for i, field := range c.ti.Types.RecordFields(t) {
			fieldOffset := bitOffset + l.FieldBitOffset[i]
			if field.BitField {
				if field.BitWidth == 0 {
					continue
				}
				// Bit-fields are integer data in every eightbyte they touch.
				cl.mergeAt(fieldOffset, Integer)
				cl.mergeAt(fieldOffset+int64(field.BitWidth)-1, Integer)
				continue
			}
			// A misaligned member sends the whole struct to memory.
			if fieldOffset%(int64(c.ti.ABIAlign(field.Type))*8) != 0 {
				cl.mergeAt(bitOffset, Memory)
				return
			}
			c.classifyAt(field.Type, fieldOffset, cl, isNamedArg)
		}

	case types.KindUnion:
		size := c.ti.AllocSize(t)
		if size > 16 {
			cl.mergeAt(bitOffset, Memory)
			return
		}
		for _, field := range c.ti.Types.RecordFields(t) {
			if field.BitField {
				if field.BitWidth == 0 {
					continue
				}
				cl.mergeAt(bitOffset, Integer)
				cl.mergeAt(bitOffset+int64(field.BitWidth)-1, Integer)
				continue
			}
			c.classifyAt(field.Type, bitOffset, cl, isNamedArg)
		}

	default:
		panic(abi.Invariantf("classifying %s", tt.Kind))
	}
}

func (c Classifier) classifyVectorAt(t types.TypeID, bitOffset int64, cl *Classification) {
	bits := c.ti.SizeBits(t)
	switch {
	case bits <= 32:
		// Small integer vectors travel in a GPR.
		cl.mergeAt(bitOffset, Integer)
	case bits == 64:
		cl.mergeAt(bitOffset, SSE)
	case bits == 128:
		cl.mergeAt(bitOffset, SSE)
		cl.mergeAt(bitOffset+64, SSEUp)
	default:
		// No AVX register file is modeled; wide vectors go to memory.
		cl.mergeAt(bitOffset, Memory)
	}
}

// classifyArgumentType classifies one argument and reports the number
// of integer/SSE registers it needs.
func (c Classifier) classifyArgumentType(t types.TypeID, neededInt, neededSSE *int, isNamedArg bool) abi.ArgInfo {
	cl := c.Classify(t, isNamedArg)
	*neededInt = 0
	*neededSSE = 0

	var lowPart types.TypeID
	switch cl.Lo {
	case NoClass:
		if cl.Hi == NoClass {
			return abi.GetIgnore()
		}
		panic(abi.Invariantf("low NoClass with high %s", cl.Hi))

	case Memory, X87, ComplexX87:
		return c.getIndirectResult(t)

	case SSEUp, X87Up:
		panic(abi.Invariantf("invalid low class %s", cl.Lo))

	case Integer:
		*neededInt = *neededInt + 1
		// Promotable scalars keep their own type and gain an extension.
		if cl.Hi == NoClass && c.ti.IsPromotableInteger(t) {
			return abi.GetExtend(t)
		}
		lowPart = c.integerTypeAtOffset(t, 0)

	case SSE:
		*neededSSE = *neededSSE + 1
		if cl.Hi == SSEUp {
			// One vector spanning both eightbytes.
			return abi.GetDirect(t)
		}
		lowPart = c.sseTypeAtOffset(t, 0)
	}

	var highPart types.TypeID
	switch cl.Hi {
	case NoClass:
	case Memory, X87, ComplexX87:
		panic(abi.Invariantf("invalid high class %s", cl.Hi))
	case Integer:
		*neededInt = *neededInt + 1
		highPart = c.integerTypeAtOffset(t, 8)
	case SSE, SSEUp:
		*neededSSE = *neededSSE + 1
		highPart = c.sseTypeAtOffset(t, 8)
	case X87Up:
		// Matched (X87, X87Up) pairs were diverted to memory above.
		panic(abi.Invariantf("X87Up without X87"))
	}

	if highPart != types.NoTypeID {
		return abi.GetDirect(c.pairType(lowPart, highPart))
	}
	return abi.GetDirect(lowPart)
}

// ClassifyReturnType classifies the return value. Register budget does
// not apply; the class logic is shared with arguments.
func (c Classifier) ClassifyReturnType(t types.TypeID) abi.ArgInfo {
	if c.ti.Types.IsVoid(t) {
		return abi.GetIgnore()
	}
	b := c.ti.Types.Builtins()
	cl := c.Classify(t, true)

	var lowPart types.TypeID
	switch cl.Lo {
	case NoClass:
		if cl.Hi == NoClass {
			return abi.GetIgnore()
		}
		panic(abi.Invariantf("low NoClass with high %s", cl.Hi))

	case Memory:
		return abi.GetIndirect(0, false)

	case X87:
		lowPart = b.X86FP80

	case ComplexX87:
		// Returned in the fixed st0/st1 pair.
		return abi.GetDirect(c.pairType(b.X86FP80, b.X86FP80))

	case SSEUp, X87Up:
		panic(abi.Invariantf("invalid low class %s", cl.Lo))

	case Integer:
		if cl.Hi == NoClass && c.ti.IsPromotableInteger(t) {
			return abi.GetExtend(t)
		}
		lowPart = c.integerTypeAtOffset(t, 0)

	case SSE:
		if cl.Hi == SSEUp {
			return abi.GetDirect(t)
		}
		lowPart = c.sseTypeAtOffset(t, 0)
	}

	var highPart types.TypeID
	switch cl.Hi {
	case NoClass, X87Up:
		// X87Up pairs with X87 into one x86_fp80.
	case Memory, X87:
		panic(abi.Invariantf("invalid high class %s", cl.Hi))
	case Integer:
		highPart = c.integerTypeAtOffset(t, 8)
	case SSE, SSEUp:
		highPart = c.sseTypeAtOffset(t, 8)
	}

	if highPart != types.NoTypeID {
		return abi.GetDirect(c.pairType(lowPart, highPart))
	}
	return abi.GetDirect(lowPart)
}

// getIndirectResult handles arguments classified to memory or whose
// registers ran out.
func (c Classifier) getIndirectResult(t types.TypeID) abi.ArgInfo {
	// Scalars never materialize a hidden copy: they go on the stack
	// directly, extended if promotable.
	if !c.ti.Types.IsAggregate(t) && c.ti.Types.Kind(t) != types.KindVector {
		if c.ti.IsPromotableInteger(t) {
			return abi.GetExtend(t)
		}
		return abi.GetDirect(t)
	}
	align := c.ti.ABIAlign(t)
	if align < 8 {
		align = 8
	}
	return abi.GetIndirect(align, true)
}

// ClassifyFunctionType classifies the return and every argument of a
// call. argTypes carries the post-promotion per-call argument types;
// for declarations it equals ft.Params. The result has the return
// classification at index 0.
func (c Classifier) ClassifyFunctionType(ft types.FunctionType, argTypes []types.TypeID) []abi.ArgInfo {
	freeInt := sysVIntRegs
	freeSSE := sysVSSERegs

	out := make([]abi.ArgInfo, 0, len(argTypes)+1)
	retInfo := c.ClassifyReturnType(ft.Return)
	out = append(out, retInfo)

	if retInfo.IsIndirect() {
		// The hidden return pointer consumes rdi.
		freeInt--
	}

	for i, argType := range argTypes {
		isNamed := i < len(ft.Params) || !ft.IsVarArg
		var neededInt, neededSSE int
		info := c.classifyArgumentType(argType, &neededInt, &neededSSE, isNamed)
		if neededInt <= freeInt && neededSSE <= freeSSE {
			freeInt -= neededInt
			freeSSE -= neededSSE
		} else {
			// Register exhaustion: indirect-eligible arguments spill
			// to a hidden copy, scalars stay direct on the stack.
			info = c.getIndirectResult(argType)
		}
		out = append(out, info)
	}
	return out
}
