package target_test

import (
	"testing"

	"cabi/internal/target"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		arch target.Arch
		os   target.OS
		env  target.Environment
	}{
		{"x86_64-linux-gnu", target.ArchX86_64, target.OSLinux, target.EnvGNU},
		{"x86_64-unknown-linux-gnu", target.ArchX86_64, target.OSLinux, target.EnvGNU},
		{"i686-pc-windows-msvc", target.ArchX86, target.OSWindows, target.EnvMSVC},
		{"i386-pc-windows-gnu", target.ArchX86, target.OSWindows, target.EnvGNU},
		{"i686-w64-windows-mingw32", target.ArchX86, target.OSWindows, target.EnvMinGW},
		{"i386-apple-darwin", target.ArchX86, target.OSDarwin, target.EnvUnknown},
		{"x86_64-apple-macos11", target.ArchX86_64, target.OSDarwin, target.EnvUnknown},
		{"i686-unknown-freebsd", target.ArchX86, target.OSFreeBSD, target.EnvUnknown},
		{"riscv64-linux-gnu", target.ArchUnknown, target.OSLinux, target.EnvGNU},
	}
	for _, tc := range tests {
		got := target.Parse(tc.in)
		if got.Arch != tc.arch || got.OS != tc.os || got.Env != tc.env {
			t.Errorf("Parse(%q) = arch=%d os=%d env=%d, want arch=%d os=%d env=%d",
				tc.in, got.Arch, got.OS, got.Env, tc.arch, tc.os, tc.env)
		}
	}
}

func TestCarveOutPredicates(t *testing.T) {
	msvc := target.Parse("i686-pc-windows-msvc")
	if !msvc.IsWin32MSVC() || msvc.IsOSCygMing() {
		t.Fatalf("msvc triple predicates wrong: %+v", msvc)
	}
	mingw := target.Parse("i686-w64-windows-mingw32")
	if !mingw.IsOSCygMing() || mingw.IsWin32MSVC() {
		t.Fatalf("mingw triple predicates wrong: %+v", mingw)
	}
	darwin := target.Parse("i386-apple-darwin")
	if !darwin.IsOSDarwin() || darwin.IsOSWindows() {
		t.Fatalf("darwin triple predicates wrong: %+v", darwin)
	}
}
