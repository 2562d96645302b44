package thread

import (
	"context"
	"sync"
)

// MemoryStore keeps threads in process memory. Used by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]Turn
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]Turn)}
}

func (s *MemoryStore) Create(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		s.threads[id] = nil
	}
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.threads[id]
	return ok, nil
}

func (s *MemoryStore) Append(ctx context.Context, id string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, ok := s.threads[id]
	if !ok {
		return ErrUnknownThread
	}
	s.threads[id] = append(turns, turn)
	return nil
}

func (s *MemoryStore) Turns(ctx context.Context, id string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns, ok := s.threads[id]
	if !ok {
		return nil, ErrUnknownThread
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
