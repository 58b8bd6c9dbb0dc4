package driver_test

import (
	"os"
	"path/filepath"
	"testing"

	"cabi/internal/driver"
)

const sampleManifest = `
triple = "x86_64-linux-gnu"

[[function]]
name = "add"
ret = "i32"
args = ["i32", "i32"]

[[function]]
name = "make_pair"
ret = "struct{i64,i64}"
args = ["struct{i64,i64}"]

[[function]]
name = "printf_like"
ret = "i32"
args = ["ptr"]
variadic = true
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abi.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLowerManifest(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, _, err := driver.LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	result, err := driver.Lower(m, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.ABIName != "x86_64" || len(result.Functions) != 3 {
		t.Fatalf("result = %+v", result)
	}
	if result.Functions[0].Signature != "i32 (i32, i32)" {
		t.Fatalf("add lowered to %q", result.Functions[0].Signature)
	}
	if result.Functions[1].Signature != "{ i64, i64 } (i64, i64)" {
		t.Fatalf("make_pair lowered to %q", result.Functions[1].Signature)
	}
	if result.Functions[2].Signature != "i32 (i8*, ...)" {
		t.Fatalf("printf_like lowered to %q", result.Functions[2].Signature)
	}
	if result.Functions[2].CallConv != "ccc" {
		t.Fatalf("printf_like cc = %q", result.Functions[2].CallConv)
	}
}

func TestLowerTripleOverride(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, _, err := driver.LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	result, err := driver.Lower(m, "i686-linux-gnu")
	if err != nil {
		t.Fatal(err)
	}
	if result.ABIName != "x86" {
		t.Fatalf("override ignored: %+v", result)
	}
	// On i386 the pair returns through a hidden sret pointer.
	if result.Functions[1].Signature != "void ({ i64, i64 }*, i64, i64)" {
		t.Fatalf("make_pair lowered to %q", result.Functions[1].Signature)
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cache, err := driver.OpenDiskCache("cabi-test")
	if err != nil {
		t.Fatal(err)
	}

	data := []byte(sampleManifest)
	key := driver.DigestFor(data, "x86_64-linux-gnu")
	if _, ok, err := cache.Get(key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	want := &driver.DumpResult{
		Triple:  "x86_64-linux-gnu",
		ABIName: "x86_64",
		Functions: []driver.FunctionDump{
			{Name: "add", Signature: "i32 (i32, i32)", CallConv: "ccc"},
		},
	}
	if err := cache.Put(key, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := cache.Get(key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.ABIName != want.ABIName || len(got.Functions) != 1 ||
		got.Functions[0].Signature != want.Functions[0].Signature {
		t.Fatalf("cache returned %+v", got)
	}

	if other := driver.DigestFor(data, "i686-linux-gnu"); other == key {
		t.Fatal("digest ignores the triple")
	}
}

func TestLoadManifestErrors(t *testing.T) {
	if _, _, err := driver.LoadManifest(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("missing file accepted")
	}
	path := writeManifest(t, `triple = "x86_64-linux-gnu"`)
	if _, _, err := driver.LoadManifest(path); err == nil {
		t.Fatal("empty manifest accepted")
	}
	path = writeManifest(t, "[[function]]\nname = \"f\"\nret = \"i32\"\ncc = \"mystery\"")
	m, _, err := driver.LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := driver.Lower(m, "x86_64-linux-gnu"); err == nil {
		t.Fatal("unknown calling convention accepted")
	}
}
