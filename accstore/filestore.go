package accstore

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileStore is a directory-backed Store: each name is one regular file
// under dir. It does not support Batch; writes go straight to disk.
type FileStore struct {
	dir string
}

// NewFileStore opens (creating if necessary) a FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "accstore: create store directory")
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, filepath.Clean(string(filepath.Separator)+name))
}

func (f *FileStore) Has(name string) (bool, error) {
	_, err := os.Stat(f.path(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrap(err, "accstore: stat")
}

func (f *FileStore) Get(name string) ([]byte, error) {
	b, err := os.ReadFile(f.path(name))
	if err != nil {
		return nil, errors.Wrap(err, "accstore: read")
	}
	return b, nil
}

func (f *FileStore) Put(name string, value []byte) error {
	if err := os.WriteFile(f.path(name), value, 0o644); err != nil {
		return errors.Wrap(err, "accstore: write")
	}
	return nil
}

func (f *FileStore) Delete(name string) error {
	err := os.Remove(f.path(name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "accstore: delete")
	}
	return nil
}

func (f *FileStore) Names() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, errors.Wrap(err, "accstore: list")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (f *FileStore) Close() error { return nil }
