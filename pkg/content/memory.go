package content

import (
	"context"
	"fmt"
	"sync"

	"blockconnect/pkg/apperr"
)

// MemoryStore keeps blobs in process. It backs CONTENT_BACKEND=memory and
// tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	ref := HashRef(data)
	return ref, s.PutAt(ctx, ref, data)
}

func (s *MemoryStore) PutAt(_ context.Context, ref string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", ref, apperr.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Len is the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
