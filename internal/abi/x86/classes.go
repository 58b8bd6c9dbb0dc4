// Package x86 implements the x86-64 System V and i386 classification
// pipelines, the ABI facades built on them and the dispatcher that
// selects a pipeline by target triple.
package x86

import "fmt"

// ArgClass is one System V AMD64 register class. A value up to 16
// bytes is described by a pair of classes, one per eightbyte.
type ArgClass uint8

const (
	NoClass ArgClass = iota
	Integer
	SSE
	SSEUp
	X87
	X87Up
	ComplexX87
	Memory
)

func (c ArgClass) String() string {
	switch c {
	case NoClass:
		return "NoClass"
	case Integer:
		return "Integer"
	case SSE:
		return "SSE"
	case SSEUp:
		return "SSEUp"
	case X87:
		return "X87"
	case X87Up:
		return "X87Up"
	case ComplexX87:
		return "ComplexX87"
	case Memory:
		return "Memory"
	default:
		return fmt.Sprintf("ArgClass(%d)", uint8(c))
	}
}

// merge combines the classes of two fields sharing an eightbyte. It is
// total and commutative:
//   - equal classes merge to themselves;
//   - NoClass is the identity;
//   - Memory dominates;
//   - Integer dominates every other class except Memory;
//   - the x87 classes force Memory when mixed with any remaining class;
//   - otherwise the result is SSE.
func merge(a, b ArgClass) ArgClass {
	if a == b {
		return a
	}
	if a == NoClass {
		return b
	}
	if b == NoClass {
		return a
	}
	if a == Memory || b == Memory {
		return Memory
	}
	if a == Integer || b == Integer {
		return Integer
	}
	if a == X87 || a == X87Up || a == ComplexX87 ||
		b == X87 || b == X87Up || b == ComplexX87 {
		return Memory
	}
	return SSE
}

// Classification is the class pair of the low and high eightbytes.
type Classification struct {
	Lo ArgClass
	Hi ArgClass
}

// mergeAt merges class into the eightbyte containing bit offset.
func (c *Classification) mergeAt(bitOffset int64, class ArgClass) {
	if bitOffset < 64 {
		c.Lo = merge(c.Lo, class)
	} else {
		c.Hi = merge(c.Hi, class)
	}
}

// postMerge applies the psABI cleanup after the members of a value of
// the given size have been classified:
//
//	(a) one eightbyte in Memory sends the whole value to Memory;
//	(b) X87Up not preceded by X87 sends the value to Memory;
//	(c) values over 16 bytes go to Memory unless they are SSE followed by SSEUp;
//	(d) SSEUp not preceded by SSE/SSEUp demotes to SSE.
func (c *Classification) postMerge(sizeBytes int64) {
	if c.Hi == Memory {
		c.Lo = Memory
	}
	if c.Hi == X87Up && c.Lo != X87 {
		c.Lo = Memory
	}
	if sizeBytes > 16 && (c.Lo != SSE || c.Hi != SSEUp) {
		c.Lo = Memory
	}
	if c.Hi == SSEUp && c.Lo != SSE {
		c.Hi = SSE
	}
	if c.Lo == Memory {
		c.Hi = Memory
	}
}

// isMemory reports whether the classified value is passed in memory.
func (c Classification) isMemory() bool { return c.Lo == Memory }
