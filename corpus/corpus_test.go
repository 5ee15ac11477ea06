package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/chazu/binast/ast"
	"github.com/chazu/binast/dict"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "trees", "b.dump"))
	touch(t, filepath.Join(dir, "trees", "a.dump"))
	touch(t, filepath.Join(dir, "trees", "notes.txt"))
	touch(t, filepath.Join(dir, "trees", "sub", "c.dump"))
	single := touch(t, filepath.Join(dir, "single.json"))

	got, err := Collect([]string{filepath.Join(dir, "trees"), single})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []string{
		filepath.Join(dir, "trees", "a.dump"),
		filepath.Join(dir, "trees", "b.dump"),
		filepath.Join(dir, "trees", "sub", "c.dump"),
		single, // explicit files pass through regardless of extension
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Collect = %v, want %v", got, want)
	}
}

func TestCollect_MissingPath(t *testing.T) {
	if _, err := Collect([]string{filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Errorf("Collect on a missing path succeeded")
	}
}

func TestScanCache_RoundTrip(t *testing.T) {
	cache, err := OpenScanCache(filepath.Join(t.TempDir(), "nested", "scan.db"))
	if err != nil {
		t.Fatalf("OpenScanCache: %v", err)
	}
	defer cache.Close()

	var fileHash, fp [32]byte
	fileHash[0], fp[0] = 0xAB, 0xCD
	blob := []byte{1, 2, 3}

	if _, ok := cache.Get(fileHash, fp); ok {
		t.Fatalf("Get hit on an empty cache")
	}
	if err := cache.Put(fileHash, fp, blob); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := cache.Get(fileHash, fp)
	if !ok || !bytes.Equal(got, blob) {
		t.Errorf("Get = %v, %t, want %v, true", got, ok, blob)
	}

	// Either half of the key misses on its own.
	var otherFP [32]byte
	otherFP[0] = 0xEE
	if _, ok := cache.Get(fileHash, otherFP); ok {
		t.Errorf("Get hit across config fingerprints")
	}
	var otherHash [32]byte
	if _, ok := cache.Get(otherHash, fp); ok {
		t.Errorf("Get hit across file hashes")
	}

	// Put replaces.
	if err := cache.Put(fileHash, fp, []byte{9}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got, _ := cache.Get(fileHash, fp); !bytes.Equal(got, []byte{9}) {
		t.Errorf("Get after replace = %v, want [9]", got)
	}
}

func TestScanCache_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.db")
	var fileHash, fp [32]byte
	fileHash[0] = 1

	cache, err := OpenScanCache(path)
	if err != nil {
		t.Fatalf("OpenScanCache: %v", err)
	}
	if err := cache.Put(fileHash, fp, []byte("kept")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenScanCache(path)
	if err != nil {
		t.Fatalf("OpenScanCache: %v", err)
	}
	defer reopened.Close()
	got, ok := reopened.Get(fileHash, fp)
	if !ok || string(got) != "kept" {
		t.Errorf("Get after reopen = %q, %t, want %q, true", got, ok, "kept")
	}
}

// TestScanCache_FeedsBuilder runs two dictionary builds against one cache
// database. The second build is served entirely from sqlite and must
// produce a byte-identical dictionary.
func TestScanCache_FeedsBuilder(t *testing.T) {
	dir := t.TempDir()
	tr := ast.NewTree()
	tr.Root = tr.AddKind(ast.KindProgram,
		tr.AddKind(ast.KindExprStmt,
			tr.AddKind(ast.KindCallExpr,
				tr.AddStr(ast.KindIdentifier, "go"),
				tr.AddStr(ast.KindIdentifier, "go"))))
	data, err := ast.FormatDump(tr)
	if err != nil {
		t.Fatalf("FormatDump: %v", err)
	}
	dump := filepath.Join(dir, "one.dump")
	if err := os.WriteFile(dump, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cache, err := OpenScanCache(filepath.Join(dir, "scan.db"))
	if err != nil {
		t.Fatalf("OpenScanCache: %v", err)
	}
	defer cache.Close()

	cfg := dict.Config{MinCount: 1, MaxSubtreeNodes: 4, MinStringLen: 2}
	build := func() []byte {
		b := dict.NewBuilder(cfg)
		b.SetCache(cache)
		if err := b.AddFile(dump); err != nil {
			t.Fatalf("AddFile: %v", err)
		}
		d, err := b.Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		blob, err := dict.MarshalDictionary(d)
		if err != nil {
			t.Fatalf("MarshalDictionary: %v", err)
		}
		return blob
	}

	first := build()
	second := build()
	if !bytes.Equal(first, second) {
		t.Errorf("cache-served build differs from the scanning build")
	}
}
