package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"photobox/internal/model"
)

// Local stores blobs as plain files in a directory and serves them through
// the /media/ static route.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Dir returns the directory blobs are written to, for static serving.
func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Save(_ context.Context, key, _ string, _ int64, r io.ReadSeeker) error {
	// Keys are generated server-side, but never trust them as paths.
	if filepath.Base(key) != key {
		return fmt.Errorf("invalid storage key %q", key)
	}

	f, err := os.Create(filepath.Join(l.dir, key))
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close media file: %w", err)
	}
	return nil
}

func (l *Local) URL(_ context.Context, key string) (string, error) {
	return "/media/" + key, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	if filepath.Base(key) != key {
		return fmt.Errorf("invalid storage key %q", key)
	}
	err := os.Remove(filepath.Join(l.dir, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

func (l *Local) Type() string {
	return model.StorageLocal
}
