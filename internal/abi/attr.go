package abi

import (
	"sort"
	"strconv"
	"strings"
)

// Attr is a parameter/function attribute relevant to ABI lowering.
type Attr uint16

const (
	AttrSExt Attr = 1 << iota
	AttrZExt
	AttrInReg
	AttrStructRet
	AttrNoAlias
	AttrByVal
	AttrInAlloca
	AttrReadOnly
	AttrReadNone
)

var attrNames = map[Attr]string{
	AttrSExt:      "signext",
	AttrZExt:      "zeroext",
	AttrInReg:     "inreg",
	AttrStructRet: "sret",
	AttrNoAlias:   "noalias",
	AttrByVal:     "byval",
	AttrInAlloca:  "inalloca",
	AttrReadOnly:  "readonly",
	AttrReadNone:  "readnone",
}

// AttrSet is the attribute set of one slot: a bit set plus an optional
// alignment in bytes.
type AttrSet struct {
	Bits  Attr
	Align int
}

// Add sets an attribute.
func (s *AttrSet) Add(a Attr) { s.Bits |= a }

// Remove clears an attribute.
func (s *AttrSet) Remove(a Attr) { s.Bits &^= a }

// Has reports whether the attribute is present.
func (s AttrSet) Has(a Attr) bool { return s.Bits&a != 0 }

// Empty reports whether the set carries nothing.
func (s AttrSet) Empty() bool { return s.Bits == 0 && s.Align == 0 }

func (s AttrSet) String() string {
	if s.Empty() {
		return ""
	}
	parts := make([]string, 0, 4)
	ordered := make([]Attr, 0, len(attrNames))
	for a := range attrNames {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	for _, a := range ordered {
		if s.Has(a) {
			parts = append(parts, attrNames[a])
		}
	}
	if s.Align != 0 {
		parts = append(parts, "align "+strconv.Itoa(s.Align))
	}
	return strings.Join(parts, " ")
}

// AttrList carries the function-level, return and per-IR-argument
// attribute sets of one lowered signature. Args is indexed by IR
// argument position and has exactly totalIRArgs entries.
type AttrList struct {
	Fn   AttrSet
	Ret  AttrSet
	Args []AttrSet
}

// NewAttrList allocates an attribute list for totalIRArgs slots.
func NewAttrList(totalIRArgs int) AttrList {
	return AttrList{Args: make([]AttrSet, totalIRArgs)}
}

// Arg returns a pointer to the set of the given IR argument and panics
// on out-of-range indices.
func (l *AttrList) Arg(i int) *AttrSet {
	if i < 0 || i >= len(l.Args) {
		panic(Invariantf("attribute index %d outside [0,%d)", i, len(l.Args)))
	}
	return &l.Args[i]
}

func (l AttrList) String() string {
	var sb strings.Builder
	if s := l.Fn.String(); s != "" {
		sb.WriteString("fn: " + s)
	}
	if s := l.Ret.String(); s != "" {
		if sb.Len() > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString("ret: " + s)
	}
	for i, a := range l.Args {
		if s := a.String(); s != "" {
			if sb.Len() > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString("arg" + strconv.Itoa(i) + ": " + s)
		}
	}
	return sb.String()
}
