package safeio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSafeFSAllowsAbsoluteUnderRoot(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs, err := NewSafeFS(dir)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	if _, err := fs.SafeReadFile(p); err != nil {
		t.Fatalf("SafeReadFile absolute: %v", err)
	}
	got, err := fs.SafeReadFile("a.txt")
	if err != nil || string(got) != "hello" {
		t.Fatalf("SafeReadFile relative: %q %v", got, err)
	}
}

func TestSafeFSRejectsEscapes(t *testing.T) {
	outer := t.TempDir()
	root := filepath.Join(outer, "root")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	secret := filepath.Join(outer, "secret.txt")
	if err := os.WriteFile(secret, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs, err := NewSafeFS(root)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}

	if _, err := fs.SafeReadFile("../secret.txt"); !errors.Is(err, ErrTraversal) {
		t.Fatalf("expected ErrTraversal, got %v", err)
	}
	if _, err := fs.SafeReadFile(secret); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot for absolute path, got %v", err)
	}
	if err := os.Symlink(secret, filepath.Join(root, "link.txt")); err == nil {
		if _, err := fs.SafeReadFile("link.txt"); !errors.Is(err, ErrOutsideRoot) {
			t.Fatalf("expected ErrOutsideRoot through symlink, got %v", err)
		}
	}
	if _, err := fs.SafeReadFile(" "); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
	if _, err := fs.SafeReadFile("."); !errors.Is(err, ErrIsDir) {
		t.Fatalf("expected ErrIsDir, got %v", err)
	}
}
