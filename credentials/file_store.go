package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const fileStorePerms = 0o600

// FileStore persists the Credential Pair as a JSON file, for the operator
// CLI. Tokens are stored as-is; at-rest encryption is deliberately out of
// scope for this client.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed credential store at the given path.
// The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the pair to disk, creating parent directories as needed.
func (s *FileStore) Save(pair Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.Save] mkdir")
	}
	data, err := json.Marshal(pair)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] marshal")
	}
	if err := os.WriteFile(s.path, data, fileStorePerms); err != nil {
		return errors.Wrap(err, "[FileStore.Save] write")
	}
	return nil
}

// Load reads the pair from disk. A missing file yields a zero Pair.
func (s *FileStore) Load() (Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Pair{}, nil
	}
	if err != nil {
		return Pair{}, errors.Wrap(err, "[FileStore.Load] read")
	}
	var pair Pair
	if err := json.Unmarshal(data, &pair); err != nil {
		return Pair{}, errors.Wrap(err, "[FileStore.Load] unmarshal")
	}
	return pair, nil
}

// Clear deletes the file. Clearing an absent file is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] remove")
	}
	return nil
}
