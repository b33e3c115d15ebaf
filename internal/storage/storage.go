// Package storage holds the small named slots the client persists locally.
package storage

import (
	"context"
	"sync"
)

// Slots is a persistent key/value area addressed by slot name.
type Slots interface {
	// Get returns the value in slot name and whether it was present.
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
	// Delete clears the slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context, name string) error
}

// MemoryStore keeps slots for the life of the process only.
type MemoryStore struct {
	slots map[string]string
	mu    sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots: make(map[string]string),
	}
}

func (s *MemoryStore) Get(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, exists := s.slots[name]
	return value, exists, nil
}

func (s *MemoryStore) Set(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[name] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, name)
	return nil
}
