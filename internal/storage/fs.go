package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/starford/notable/internal/apperr"
	"github.com/starford/notable/internal/models"
)

// FS implements Provider backed by a single JSON file on the local file system.
type FS struct {
	path string // absolute path to the store file
}

// NewFS creates a provider for the store file at path. The file itself is
// not touched until Init, Load or Save is called.
func NewFS(path string) (*FS, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	return &FS{path: abs}, nil
}

// Path returns the absolute path of the store file.
func (f *FS) Path() string {
	return f.path
}

// Init creates the parent directory and seeds an empty array if the store
// file does not exist. An existing file is left untouched.
func (f *FS) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w: %w", apperr.ErrStorageUnavailable, err)
	}
	info, err := os.Stat(f.path)
	switch {
	case err == nil:
		if info.IsDir() {
			return fmt.Errorf("storage: %s is a directory: %w", f.path, apperr.ErrStorageUnavailable)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return f.Save(ctx, nil)
	default:
		return fmt.Errorf("storage: stat %s: %w: %w", f.path, apperr.ErrStorageUnavailable, err)
	}
}

// Load opens the store file, decodes the full array and closes the file.
func (f *FS) Load(ctx context.Context) ([]models.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w: %w", f.path, apperr.ErrStorageUnavailable, err)
	}
	defer file.Close()

	return decode(file, f.path)
}

// Save atomically replaces the store file: tmp file -> fsync -> rename.
// A failed save leaves the previous content in place.
func (f *FS) Save(ctx context.Context, notes []models.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(notes)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".notable-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w: %w", apperr.ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w: %w", apperr.ErrStorageUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w: %w", apperr.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w: %w", apperr.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage: rename: %w: %w", apperr.ErrStorageUnavailable, err)
	}
	success = true
	return nil
}
