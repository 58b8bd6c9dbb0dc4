package driver

import (
	"fmt"

	"cabi/internal/abi"
	"cabi/internal/abi/x86"
	"cabi/internal/target"
	"cabi/internal/typeexpr"
	"cabi/internal/types"
)

// FunctionDump is the rendered lowering of one declared function.
type FunctionDump struct {
	Name       string
	Source     string
	CallConv   string
	Signature  string
	Attributes string
}

// DumpResult is the rendered lowering of one manifest.
type DumpResult struct {
	Triple    string
	ABIName   string
	Functions []FunctionDump
}

// Lower lowers every function of a manifest for the given triple
// (tripleOverride wins over the manifest's own).
func Lower(m *Manifest, tripleOverride string) (*DumpResult, error) {
	tripleStr := m.Triple
	if tripleOverride != "" {
		tripleStr = tripleOverride
	}
	if tripleStr == "" {
		return nil, fmt.Errorf("no target triple (set triple= in the manifest or pass --triple)")
	}

	in := types.NewInterner()
	a, err := x86.CreateABI(target.Parse(tripleStr), in)
	if err != nil {
		return nil, err
	}

	result := &DumpResult{Triple: tripleStr, ABIName: a.Name()}
	for _, decl := range m.Functions {
		cc, err := ParseCallingConvention(decl.CC)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", decl.Name, err)
		}
		ret, err := typeexpr.Parse(in, decl.Ret)
		if err != nil {
			return nil, fmt.Errorf("function %q return: %w", decl.Name, err)
		}
		params := make([]types.TypeID, len(decl.Args))
		for i, src := range decl.Args {
			if params[i], err = typeexpr.Parse(in, src); err != nil {
				return nil, fmt.Errorf("function %q argument %d: %w", decl.Name, i, err)
			}
		}

		ft := types.MakeFunctionType(cc, ret, params, decl.Variadic)
		sig, err := a.FunctionType(ft)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", decl.Name, err)
		}
		attrs, err := a.Attributes(ft, ft.Params, abi.AttrList{})
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", decl.Name, err)
		}
		irCC, err := a.CallingConvention(cc)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", decl.Name, err)
		}

		result.Functions = append(result.Functions, FunctionDump{
			Name:       decl.Name,
			Source:     renderSource(in, decl, ft),
			CallConv:   irCC.String(),
			Signature:  sig.String(),
			Attributes: attrs.String(),
		})
	}
	return result, nil
}

func renderSource(in *types.Interner, decl FunctionDecl, ft types.FunctionType) string {
	s := in.TypeString(ft.Return) + " " + decl.Name + "("
	for i, p := range ft.Params {
		if i > 0 {
			s += ", "
		}
		s += in.TypeString(p)
	}
	if ft.IsVarArg {
		if len(ft.Params) > 0 {
			s += ", "
		}
		s += "..."
	}
	return s + ")"
}
