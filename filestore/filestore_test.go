package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorageSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	stored, err := s.Save(context.Background(), "Muster Roll.PDF", "application/pdf", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(stored.Path, "/uploads/") || !strings.HasSuffix(stored.Path, ".pdf") {
		t.Fatalf("path = %q", stored.Path)
	}
	if stored.Size != 5 {
		t.Fatalf("size = %d", stored.Size)
	}

	name := filepath.Base(stored.Path)
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil || string(data) != "hello" {
		t.Fatalf("read back: %q %v", data, err)
	}

	if err := s.Delete(context.Background(), stored.Path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
}

func TestLocalStorageDeleteRejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Delete(context.Background(), "/uploads/../config.go"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("got %v, want ErrInvalidPath", err)
	}
}

func TestStoredNamesAreUnique(t *testing.T) {
	a, b := storedName("x.docx"), storedName("x.docx")
	if a == b {
		t.Fatalf("names collide: %s", a)
	}
	if filepath.Ext(a) != ".docx" {
		t.Fatalf("extension lost: %s", a)
	}
}
