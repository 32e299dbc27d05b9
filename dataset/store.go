package dataset

import (
	"os"
	"path/filepath"

	"github.com/urbanrisk/crimeml/pkg/errors"
)

// FileStore is the narrow contract to the file-storage collaborator that
// owns raw datasets and artifacts.
type FileStore interface {
	// Exists reports whether the named file is present in the store.
	Exists(name string) bool

	// Get returns the full contents of the named file.
	Get(name string) ([]byte, error)

	// Put writes data to the named file, creating parent directories as
	// needed.
	Put(name string, data []byte) error

	// Path resolves a store-relative name to an absolute filesystem path.
	Path(name string) string
}

// LocalStore is a FileStore rooted at a directory on local disk.
type LocalStore struct {
	Root string
}

// NewLocalStore creates a LocalStore rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root}
}

func (s *LocalStore) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

func (s *LocalStore) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return data, nil
}

func (s *LocalStore) Put(name string, data []byte) error {
	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", name)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	return nil
}

func (s *LocalStore) Path(name string) string {
	return filepath.Join(s.Root, name)
}
