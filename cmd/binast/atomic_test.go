package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	if err := writeFileAtomic(path, []byte("payload")); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("content = %q, want %q", data, "payload")
	}

	// Overwriting an existing file goes through the same rename.
	if err := writeFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("writeFileAtomic overwrite: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !bytes.Equal(data, []byte("second")) {
		t.Errorf("content = %q, want %q", data, "second")
	}

	// No temp files stay behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("directory has leftovers: %v", names)
	}
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "no", "such", "dir", "out.bin")

	if err := writeFileAtomic(path, []byte("payload")); err == nil {
		t.Fatal("expected error for missing destination directory")
	}
}
