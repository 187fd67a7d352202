package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidPath = errors.New("invalid file path")

// StoredFile describes a saved upload.
type StoredFile struct {
	Path string // server-relative path or object key
	Size int64
}

// FileStorage accepts an uploaded file and returns where it was stored. The
// workflow keeps only the path and original file name.
type FileStorage interface {
	Save(ctx context.Context, originalName, contentType string, r io.Reader) (StoredFile, error)
	Delete(ctx context.Context, path string) error
}

// storedName keeps the original extension and replaces the rest with a uuid.
func storedName(originalName string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(originalName))
}

// LocalStorage writes uploads under a directory on disk.
type LocalStorage struct {
	dir       string
	urlPrefix string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir, urlPrefix: "/uploads/"}, nil
}

func (s *LocalStorage) Save(ctx context.Context, originalName, contentType string, r io.Reader) (StoredFile, error) {
	name := storedName(originalName)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create %s: %w", name, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return StoredFile{}, fmt.Errorf("write %s: %w", name, err)
	}
	return StoredFile{Path: s.urlPrefix + name, Size: n}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	name := strings.TrimPrefix(path, s.urlPrefix)
	if name == "" || name != filepath.Base(name) {
		return ErrInvalidPath
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Dir is the directory served under /uploads/.
func (s *LocalStorage) Dir() string {
	return s.dir
}
