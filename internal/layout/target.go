// Package layout is the sole source of target layout truth: sizes,
// alignments, field offsets, signedness queries and the mapping from
// source types to IR types. Every other component is a pure function
// of (FunctionType, TypeInfo, triple).
package layout

import (
	"cabi/internal/ir"
	"cabi/internal/target"
)

// Target describes the ABI target and its data layout.
type Target struct {
	Triple target.Triple
	DL     ir.DataLayout
}

// X86_64SysV returns the System V AMD64 target for the given triple.
func X86_64SysV(triple target.Triple) Target {
	return Target{Triple: triple, DL: ir.X86_64DataLayout()}
}

// X86_32 returns the i386 target for the given triple.
func X86_32(triple target.Triple) Target {
	return Target{Triple: triple, DL: ir.X86_32DataLayout()}
}

// PtrBytes returns the pointer size in bytes.
func (t Target) PtrBytes() int { return t.DL.PtrBytes }
