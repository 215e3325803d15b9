package credentials

import "sync"

// MemoryStore keeps the Credential Pair in process memory. It mirrors the
// per-tab session storage of the browser console: the pair survives for the
// lifetime of the process and is gone afterwards.
type MemoryStore struct {
	mu   sync.RWMutex
	pair Pair
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores the pair, replacing any previous one.
func (s *MemoryStore) Save(pair Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

// Load returns the stored pair, or a zero Pair when nothing is stored.
func (s *MemoryStore) Load() (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

// Clear removes the stored pair. Clearing an empty store is not an error.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = Pair{}
	return nil
}
