package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/twiced-technology-gmbh/equilibrium/internal/filelock"
)

const (
	fileMode     = 0o600
	dirMode      = 0o750
	lockFileName = ".lock"

	// writeLockTimeout bounds how long a write waits for another process.
	writeLockTimeout = 5 * time.Second
)

// FileStore keeps one JSON file per key in a directory. Writes go to a temporary
// file that is renamed into place while holding an advisory lock, so readers never
// see a partial snapshot and concurrent writers are last-write-wins.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file backing key.
func (f *FileStore) Path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get implements ByteStore.
func (f *FileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(f.Path(key)) //nolint:gosec // path built from trusted registry dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Put implements ByteStore.
func (f *FileStore) Put(key string, data []byte) error {
	return f.withLock(func() error {
		tmp, err := os.CreateTemp(f.dir, "."+key+"-*.tmp")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpName := tmp.Name()
		defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

		if _, err := tmp.Write(data); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("writing %s: %w", key, err)
		}
		if err := tmp.Chmod(fileMode); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("setting mode on %s: %w", key, err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", key, err)
		}
		if err := os.Rename(tmpName, f.Path(key)); err != nil {
			return fmt.Errorf("replacing %s: %w", key, err)
		}
		return nil
	})
}

// Delete implements ByteStore. Deleting a missing key is not an error.
func (f *FileStore) Delete(key string) error {
	return f.withLock(func() error {
		if err := os.Remove(f.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", key, err)
		}
		return nil
	})
}

func (f *FileStore) withLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeLockTimeout)
	defer cancel()
	return filelock.With(ctx, filepath.Join(f.dir, lockFileName), fn)
}

// Close implements ByteStore.
func (f *FileStore) Close() error { return nil }
