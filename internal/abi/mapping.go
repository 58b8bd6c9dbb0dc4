package abi

import (
	"cabi/internal/ir"
	"cabi/internal/layout"
	"cabi/internal/types"
)

// InvalidIndex marks an absent IR argument index.
const InvalidIndex = -1

// ArgumentIRMapping locates the IR arguments of one source argument.
type ArgumentIRMapping struct {
	ArgInfo         ArgInfo
	FirstArgIndex   int
	NumberOfIRArgs  int
	PaddingArgIndex int
}

// FunctionIRMapping holds the information needed to translate between
// an ABI function and its IR function: the IR argument range of every
// source argument, the struct-return slot, the total slot count. It is
// read-only after construction.
type FunctionIRMapping struct {
	returnArgInfo     ArgInfo
	inallocaArgIndex  int
	structRetArgIndex int
	totalIRArgs       int
	arguments         []ArgumentIRMapping
}

// ReturnArgInfo returns the classification of the return value.
func (m *FunctionIRMapping) ReturnArgInfo() ArgInfo { return m.returnArgInfo }

// Arguments returns the per-argument mappings.
func (m *FunctionIRMapping) Arguments() []ArgumentIRMapping { return m.arguments }

// TotalIRArgs returns the number of IR parameters.
func (m *FunctionIRMapping) TotalIRArgs() int { return m.totalIRArgs }

// HasStructRetArg reports whether the function carries a hidden sret
// pointer.
func (m *FunctionIRMapping) HasStructRetArg() bool {
	return m.structRetArgIndex != InvalidIndex
}

// StructRetArgIndex returns the IR index of the sret pointer.
func (m *FunctionIRMapping) StructRetArgIndex() int {
	if !m.HasStructRetArg() {
		panic(Invariantf("no struct-return argument"))
	}
	return m.structRetArgIndex
}

// HasInallocaArg reports whether the function carries an inalloca
// argument. The slot is reserved but never assigned; see DESIGN.md.
func (m *FunctionIRMapping) HasInallocaArg() bool {
	return m.inallocaArgIndex != InvalidIndex
}

// InallocaArgIndex returns the IR index of the inalloca argument.
func (m *FunctionIRMapping) InallocaArgIndex() int {
	if !m.HasInallocaArg() {
		panic(Invariantf("no inalloca argument"))
	}
	return m.inallocaArgIndex
}

// HasPaddingArg reports whether argument argIndex owns a padding slot.
func (m *FunctionIRMapping) HasPaddingArg(argIndex int) bool {
	return m.arguments[argIndex].PaddingArgIndex != InvalidIndex
}

// PaddingArgIndex returns the padding slot of argument argIndex.
func (m *FunctionIRMapping) PaddingArgIndex(argIndex int) int {
	if !m.HasPaddingArg(argIndex) {
		panic(Invariantf("argument %d has no padding slot", argIndex))
	}
	return m.arguments[argIndex].PaddingArgIndex
}

// IRArgRange returns the first IR argument index and the IR argument
// count of source argument argIndex.
func (m *FunctionIRMapping) IRArgRange(argIndex int) (first, count int) {
	a := m.arguments[argIndex]
	return a.FirstArgIndex, a.NumberOfIRArgs
}

// GetExpansionSize returns the number of leaf scalars an expanded type
// flattens into.
func GetExpansionSize(ti *layout.TypeInfo, id types.TypeID) int {
	tt := ti.Types.MustLookup(id)
	switch tt.Kind {
	case types.KindVoid:
		panic(Invariantf("expanding void"))
	case types.KindArray:
		return int(tt.Count) * GetExpansionSize(ti, tt.Elem)
	case types.KindStruct:
		if ti.Types.HasFlexibleArrayMember(id) {
			panic(Unsupportedf("cannot expand struct with flexible array member"))
		}
		result := 0
		for _, field := range ti.Types.RecordFields(id) {
			if field.BitField && field.BitWidth == 0 {
				continue
			}
			if field.BitField {
				panic(Unsupportedf("cannot expand struct with bit-field members"))
			}
			result += GetExpansionSize(ti, field.Type)
		}
		return result
	case types.KindUnion:
		largest := largestUnionField(ti, id)
		if largest == types.NoTypeID {
			return 0
		}
		return GetExpansionSize(ti, largest)
	case types.KindComplex:
		return 2
	default:
		return 1
	}
}

// GetExpandedTypes appends the IR types of the expanded leaves of id.
func GetExpandedTypes(ti *layout.TypeInfo, id types.TypeID, out []*ir.Type) []*ir.Type {
	tt := ti.Types.MustLookup(id)
	switch tt.Kind {
	case types.KindArray:
		for i := uint32(0); i < tt.Count; i++ {
			out = GetExpandedTypes(ti, tt.Elem, out)
		}
	case types.KindStruct:
		if ti.Types.HasFlexibleArrayMember(id) {
			panic(Unsupportedf("cannot expand struct with flexible array member"))
		}
		for _, field := range ti.Types.RecordFields(id) {
			if field.BitField && field.BitWidth == 0 {
				continue
			}
			if field.BitField {
				panic(Unsupportedf("cannot expand struct with bit-field members"))
			}
			out = GetExpandedTypes(ti, field.Type, out)
		}
	case types.KindUnion:
		// Unions reach expansion only in degenerate cases where all
		// fields flatten identically; use the largest one.
		largest := largestUnionField(ti, id)
		if largest != types.NoTypeID {
			out = GetExpandedTypes(ti, largest, out)
		}
	case types.KindComplex:
		elem := ti.IRType(tt.Elem)
		out = append(out, elem, elem)
	default:
		out = append(out, ti.IRType(id))
	}
	return out
}

func largestUnionField(ti *layout.TypeInfo, id types.TypeID) types.TypeID {
	var largestSize int64
	largest := types.NoTypeID
	for _, field := range ti.Types.RecordFields(id) {
		if field.BitField && field.BitWidth == 0 {
			continue
		}
		if field.BitField {
			panic(Unsupportedf("cannot expand union with bit-field members"))
		}
		if size := ti.AllocSize(field.Type); size > largestSize {
			largestSize = size
			largest = field.Type
		}
	}
	return largest
}

// GetFunctionIRMapping lays out IR argument slots for a classified
// function. argInfos[0] is the return classification, the rest follow
// source argument order.
func GetFunctionIRMapping(ti *layout.TypeInfo, argInfos []ArgInfo) FunctionIRMapping {
	m := FunctionIRMapping{
		inallocaArgIndex:  InvalidIndex,
		structRetArgIndex: InvalidIndex,
	}
	if len(argInfos) == 0 {
		panic(Invariantf("missing return classification"))
	}
	m.returnArgInfo = argInfos[0]

	irArgNo := 0
	swapThisWithSRet := false
	if m.returnArgInfo.Kind() == Indirect {
		swapThisWithSRet = m.returnArgInfo.SRetAfterThis()
		if swapThisWithSRet {
			m.structRetArgIndex = 1
		} else {
			m.structRetArgIndex = irArgNo
			irArgNo++
		}
	}

	for _, argInfo := range argInfos[1:] {
		am := ArgumentIRMapping{
			ArgInfo:         argInfo,
			FirstArgIndex:   InvalidIndex,
			PaddingArgIndex: InvalidIndex,
		}

		if argInfo.PaddingType() != types.NoTypeID {
			am.PaddingArgIndex = irArgNo
			irArgNo++
		}

		switch argInfo.Kind() {
		case Direct, ExtendInteger:
			coerce := argInfo.CoerceType()
			if argInfo.IsDirect() && argInfo.CanBeFlattened() &&
				ti.Types.Kind(coerce) == types.KindStruct {
				am.NumberOfIRArgs = len(ti.Types.RecordFields(coerce))
			} else {
				am.NumberOfIRArgs = 1
			}
		case Indirect:
			am.NumberOfIRArgs = 1
		case Ignore, InAlloca:
			// No matching IR parameters.
			am.NumberOfIRArgs = 0
		case Expand:
			am.NumberOfIRArgs = GetExpansionSize(ti, argInfo.ExpandType())
		}

		if am.NumberOfIRArgs > 0 {
			am.FirstArgIndex = irArgNo
			irArgNo += am.NumberOfIRArgs
		}

		// Skip over the sret parameter when it comes second; it was
		// assigned index 1 above.
		if irArgNo == 1 && swapThisWithSRet {
			irArgNo++
		}

		m.arguments = append(m.arguments, am)
	}

	m.totalIRArgs = irArgNo
	return m
}
