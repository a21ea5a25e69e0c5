package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps files in a map.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	id, err := CleanID(id)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[id]
	return ok, nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) ([]byte, error) {
	id, err := CleanID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *MemoryStore) Save(ctx context.Context, id string, data []byte) error {
	id, err := CleanID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Append(ctx context.Context, id string, data []byte) error {
	id, err := CleanID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = append(s.files[id], data...)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
