// Package workspace reads and writes project files relative to the working
// folder.
package workspace

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/rnupgrade/internal/errors"
)

// FS is the file primitive set the upgrade and chat flows depend on.
// Paths are relative to the working folder.
type FS interface {
	ReadFile(path string) (string, error)
	WriteFile(path, contents string) error
	Exists(path string) bool
	Remove(path string) error
}

// Dir is an FS rooted at a directory on disk.
type Dir struct {
	Root string
}

// NewDir returns an FS rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

// Resolve maps a relative path to an absolute one inside Root.
func (d *Dir) Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if filepath.IsAbs(path) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path must be relative to the project: %s", path))
	}
	if containsTraversal(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	return filepath.Join(d.Root, filepath.FromSlash(path)), nil
}

// ReadFile returns the file contents. A missing file is FILE_NOT_FOUND.
func (d *Dir) ReadFile(path string) (string, error) {
	abs, err := d.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return "", errors.NewFileNotFound(path)
		}
		return "", err
	}
	return string(data), nil
}

// WriteFile writes contents, creating parent directories as needed.
func (d *Dir) WriteFile(path, contents string) error {
	abs, err := d.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return os.WriteFile(abs, []byte(contents), 0644)
}

// Exists reports whether path names an existing regular file.
func (d *Dir) Exists(path string) bool {
	abs, err := d.Resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// Remove deletes the file. Removing a missing file is FILE_NOT_FOUND.
func (d *Dir) Remove(path string) error {
	abs, err := d.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return errors.NewFileNotFound(path)
		}
		return err
	}
	return nil
}

// containsTraversal checks if path contains a ".." component.
func containsTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}
