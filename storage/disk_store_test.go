package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}

	content := []byte("%PDF-1.4\nbody\n%%EOF\n")
	if err := store.Save(context.Background(), "file-1.pdf", bytes.NewReader(content), int64(len(content)), "application/pdf"); err != nil {
		t.Fatalf("save: %v", err)
	}

	body, size, err := store.Open(context.Background(), "file-1.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer body.Close()
	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, content) || size != int64(len(content)) {
		t.Fatalf("round trip mismatch: size=%d body=%q", size, got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the final file, found %d entries", len(entries))
	}
}

func TestDiskStoreMissingFile(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	if _, _, err := store.Open(context.Background(), "file-404.pdf"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestDiskStoreRejectsUnsafeNames(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.pdf"), []byte("x"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for _, name := range []string{"", "../secret.pdf", "nested/file.pdf", ".hidden", ".."} {
		if err := store.Save(context.Background(), name, bytes.NewReader([]byte("x")), 1, ""); err == nil {
			t.Fatalf("save %q: expected error", name)
		}
		if _, _, err := store.Open(context.Background(), name); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("open %q: expected fs.ErrNotExist, got %v", name, err)
		}
	}
}

func TestNewDiskStoreRequiresPath(t *testing.T) {
	if _, err := NewDiskStore("  "); err == nil {
		t.Fatalf("expected error for empty base path")
	}
}
