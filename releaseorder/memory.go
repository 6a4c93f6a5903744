package releaseorder

import (
	"context"
	"sync"
)

// MemoryAssetStore keeps assets in memory (test/dev only).
type MemoryAssetStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryAssetStore creates an in-memory asset store.
func NewMemoryAssetStore() *MemoryAssetStore {
	return &MemoryAssetStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *MemoryAssetStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

// Set stores value under key.
func (s *MemoryAssetStore) Set(ctx context.Context, key, value string) error {
	_ = ctx
	if key == "" {
		return NewError(KindValidation, "asset key is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *MemoryAssetStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}
