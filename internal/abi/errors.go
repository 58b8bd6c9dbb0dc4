// Package abi implements the target-independent half of C ABI
// lowering: per-argument classification records, the mapping from
// classified arguments to IR parameter slots, IR signature and
// attribute assembly, variadic promotion and the caller/callee
// encoders. Target policy lives in the x86 subpackage.
package abi

import "fmt"

// ErrorKind classifies lowering failures. All of them are fatal for
// the current lowering; none is retried.
type ErrorKind uint8

const (
	// ErrUnsupported marks an input the ABI cannot express: a
	// flexible array member or bit-field reaching the expand path,
	// an unknown calling convention, vectorcall on a target that
	// lacks it.
	ErrUnsupported ErrorKind = iota + 1
	// ErrUnimplemented marks a reserved surface that is not wired
	// yet, such as inalloca emission.
	ErrUnimplemented
	// ErrInvariant marks an internal consistency violation; it is
	// only ever seen inside a panic.
	ErrInvariant
)

// Error is the structured diagnostic carried by both returned errors
// and invariant panics.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrUnsupported:
		return "unsupported: " + e.Msg
	case ErrUnimplemented:
		return "unimplemented: " + e.Msg
	case ErrInvariant:
		return "invariant violation: " + e.Msg
	default:
		return e.Msg
	}
}

// Unsupportedf builds an ErrUnsupported diagnostic.
func Unsupportedf(format string, args ...any) *Error {
	return &Error{Kind: ErrUnsupported, Msg: fmt.Sprintf(format, args...)}
}

// Unimplementedf builds an ErrUnimplemented diagnostic.
func Unimplementedf(format string, args ...any) *Error {
	return &Error{Kind: ErrUnimplemented, Msg: fmt.Sprintf(format, args...)}
}

// Invariantf builds an ErrInvariant diagnostic for panics.
func Invariantf(format string, args ...any) *Error {
	return &Error{Kind: ErrInvariant, Msg: fmt.Sprintf(format, args...)}
}
