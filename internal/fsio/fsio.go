// Package fsio provides the filesystem collaborator consumed by the document
// controller and reconciliation protocol. It wraps an afero.Fs so production
// code runs on the OS filesystem while tests run on an in-memory one.
package fsio

import (
	"os"

	"github.com/spf13/afero"

	"github.com/tessera-editor/tessera/internal/errors"
)

// Files exposes the read/write surface the editor core needs.
// All operations are synchronous; callers treat them as suspension points.
type Files struct {
	fs afero.Fs
}

// New creates a Files service over the given afero filesystem.
func New(fs afero.Fs) *Files {
	return &Files{fs: fs}
}

// NewOS creates a Files service over the real OS filesystem.
func NewOS() *Files {
	return New(afero.NewOsFs())
}

// ReadFile returns the content of path. A missing file yields an IOError
// wrapping errors.ErrNotFound so callers can branch on existence.
func (f *Files) ReadFile(path string) (string, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError("read failed", path, errors.ErrNotFound)
		}
		return "", errors.NewIOError("read failed", path, err)
	}
	return string(data), nil
}

// WriteFile replaces the content of path, creating the file if needed.
func (f *Files) WriteFile(path, content string) error {
	if err := afero.WriteFile(f.fs, path, []byte(content), 0644); err != nil {
		return errors.NewIOError("write failed", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (f *Files) Exists(path string) (bool, error) {
	ok, err := afero.Exists(f.fs, path)
	if err != nil {
		return false, errors.NewIOError("stat failed", path, err)
	}
	return ok, nil
}

// Rename moves a file. Used when a collaborator-driven rename must be
// mirrored on disk before the store propagates the new path.
func (f *Files) Rename(oldPath, newPath string) error {
	if err := f.fs.Rename(oldPath, newPath); err != nil {
		return errors.NewIOError("rename failed", oldPath, err)
	}
	return nil
}
