package docstore

import (
	"context"
	"sync"
)

// MemoryStore implements DocumentStore in process memory.
// Used for tests and for offline development without an object store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte

	// Fail, when set, makes every operation return the given error.
	// Tests use it to simulate an unreachable remote store.
	Fail error
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) GetDocument(_ context.Context, identity, category string) ([]byte, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	key, err := objectKey(identity, category)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.docs[key]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

func (s *MemoryStore) PutDocument(_ context.Context, identity, category string, body []byte) error {
	if s.Fail != nil {
		return s.Fail
	}
	key, err := objectKey(identity, category)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(body))
	copy(stored, body)
	s.docs[key] = stored
	return nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, identity, category string) error {
	if s.Fail != nil {
		return s.Fail
	}
	key, err := objectKey(identity, category)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	return nil
}
