package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var errInvalidName = errors.New("invalid stored file name")

// DiskStore saves attachments as flat files under a base directory.
type DiskStore struct {
	basePath string
}

// NewDiskStore creates the base directory if missing.
func NewDiskStore(basePath string) (*DiskStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DiskStore{basePath: basePath}, nil
}

// Save writes r to a temporary file and renames it into place, so a failed
// write never leaves a truncated attachment under the final name.
func (d *DiskStore) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	target, err := d.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.basePath, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("move file into place: %w", err)
	}
	return nil
}

// Open returns the stored file and its size. Unknown names yield an error
// matching fs.ErrNotExist.
func (d *DiskStore) Open(_ context.Context, name string) (io.ReadCloser, int64, error) {
	target, err := d.path(name)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", fs.ErrNotExist, err)
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, fs.ErrNotExist
	}
	return f, info.Size(), nil
}

// path rejects names that would escape the base directory.
func (d *DiskStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", errInvalidName
	}
	return filepath.Join(d.basePath, name), nil
}
