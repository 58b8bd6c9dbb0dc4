// Package driver loads function-type manifests, lowers them through
// the ABI pipelines and caches the rendered results on disk.
package driver

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"cabi/internal/types"
)

// FunctionDecl is one declared function in a manifest.
type FunctionDecl struct {
	Name     string   `toml:"name"`
	CC       string   `toml:"cc"`
	Ret      string   `toml:"ret"`
	Args     []string `toml:"args"`
	Variadic bool     `toml:"variadic"`
}

// Manifest is the TOML battery of function types to lower.
type Manifest struct {
	Triple    string         `toml:"triple"`
	Functions []FunctionDecl `toml:"function"`
}

// LoadManifest reads and decodes a manifest file.
func LoadManifest(path string) (*Manifest, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(m.Functions) == 0 {
		return nil, nil, fmt.Errorf("%s: no [[function]] entries", path)
	}
	return &m, data, nil
}

// ParseCallingConvention maps a manifest cc string to the abstract tag.
func ParseCallingConvention(s string) (types.CallingConvention, error) {
	switch s {
	case "", "default":
		return types.CCDefault, nil
	case "cdecl":
		return types.CCCDecl, nil
	case "c++", "cppdefault":
		return types.CCCppDefault, nil
	case "stdcall":
		return types.CCStdCall, nil
	case "fastcall":
		return types.CCFastCall, nil
	case "thiscall":
		return types.CCThisCall, nil
	case "pascal":
		return types.CCPascal, nil
	case "vectorcall":
		return types.CCVectorCall, nil
	default:
		return 0, fmt.Errorf("unknown calling convention %q", s)
	}
}
