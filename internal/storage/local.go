package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/spf13/afero"
)

// LocalStore keeps objects as files on an afero filesystem
type LocalStore struct {
	fs afero.Fs
}

// NewLocalStore stores objects below root on the OS filesystem.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory, %w", err)
	}

	return &LocalStore{fs: afero.NewBasePathFs(afero.NewOsFs(), root)}, nil
}

// NewMemStore keeps objects in memory. Everything is lost when the process
// exits.
func NewMemStore() *LocalStore {
	return &LocalStore{fs: afero.NewMemMapFs()}
}

func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, size int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory, %w", err)
	}

	// Write to a temporary name first so readers never see half written objects
	tmp := key + ".part"

	f, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create object file, %w", err)
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("short write, expected %d bytes got %d", size, n)
	}
	if err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("failed to write object, %w", err)
	}

	if err := s.fs.Rename(tmp, key); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("failed to move object into place, %w", err)
	}

	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectMissing
		}

		return nil, fmt.Errorf("failed to open object, %w", err)
	}

	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.fs.Remove(key)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object, %w", err)
	}

	// Drop the per-file directory, it only ever holds this object
	s.fs.Remove(path.Dir(key))

	return nil
}
