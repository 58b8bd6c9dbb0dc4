package x86

import (
	"cabi/internal/abi"
	"cabi/internal/target"
	"cabi/internal/types"
)

// CreateABI selects the pipeline for a target triple: the i386
// pipeline for 32-bit x86, the Win64 pipeline for x86_64 Windows and
// the System V pipeline for every other x86_64 target.
func CreateABI(triple target.Triple, typesIn *types.Interner) (abi.ABI, error) {
	switch triple.Arch {
	case target.ArchX86:
		return NewX86_32ABI(triple, typesIn, X86_32Options{}), nil
	case target.ArchX86_64:
		if triple.IsOSWindows() {
			return NewWin64ABI(triple, typesIn), nil
		}
		return NewX86_64ABI(triple, typesIn), nil
	default:
		return nil, abi.Unsupportedf("target triple %q", triple.Raw)
	}
}

// catchFatal converts the structured unsupported/unimplemented panics
// raised deep in classification into returned errors at the facade
// boundary. Invariant violations keep panicking.
func catchFatal(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*abi.Error); ok && e.Kind != abi.ErrInvariant {
		*err = e
		return
	}
	panic(r)
}
