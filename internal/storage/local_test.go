package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"resumebox/internal/config"
)

func newTestStore(t *testing.T) (*Store, string, string) {
	t.Helper()
	root := t.TempDir()
	fallback := t.TempDir()
	store, err := NewStore(config.StorageConfig{
		UploadRoot:  root,
		FallbackDir: fallback,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, root, fallback
}

func TestSaveAndResolve_UnderUploadRoot(t *testing.T) {
	store, root, _ := newTestStore(t)

	rel, err := store.Save(filepath.Join("resumes", "1", "doc.pdf"), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	full, err := store.Resolve(rel)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := filepath.Join(root, rel); full != want {
		t.Fatalf("resolved %q, want %q", full, want)
	}
}

func TestResolve_FallsBackToSecondaryDir(t *testing.T) {
	store, _, fallback := newTestStore(t)

	legacy := filepath.Join(fallback, "legacy.pdf")
	if err := os.WriteFile(legacy, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	full, err := store.Resolve("legacy.pdf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if full != legacy {
		t.Fatalf("resolved %q, want %q", full, legacy)
	}
}

func TestResolve_AbsolutePathUsedAsIs(t *testing.T) {
	store, _, _ := newTestStore(t)

	dir := t.TempDir()
	abs := filepath.Join(dir, "elsewhere.pdf")
	if err := os.WriteFile(abs, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	full, err := store.Resolve(abs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if full != abs {
		t.Fatalf("resolved %q, want %q", full, abs)
	}
}

func TestResolve_MissingEverywhere(t *testing.T) {
	store, _, _ := newTestStore(t)

	if _, err := store.Resolve("nope.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemove_MissingFileIsSuccess(t *testing.T) {
	store, _, _ := newTestStore(t)

	if err := store.Remove("already-gone.pdf"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}

func TestSave_RejectsEscapingPaths(t *testing.T) {
	store, _, _ := newTestStore(t)

	if _, err := store.Save(filepath.Join("..", "escape.pdf"), []byte("x")); err == nil {
		t.Fatal("expected error for path escaping upload root")
	}
}
