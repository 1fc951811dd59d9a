package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Cache. Entries are only removed explicitly.
type Memory[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	now     func() time.Time
}

// NewMemory returns an empty in-process cache.
func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{
		entries: make(map[string]Entry[V]),
		now:     time.Now,
	}
}

// Get returns the entry for key.
func (m *Memory[V]) Get(_ context.Context, key string) (Entry[V], bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

// Set stores value under key.
func (m *Memory[V]) Set(_ context.Context, key string, value V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Entry[V]{Value: value, StoredAt: m.now()}
	return nil
}

// Delete removes key.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// DeletePrefix removes every key starting with prefix.
func (m *Memory[V]) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

// Clear removes every entry.
func (m *Memory[V]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
	return nil
}

// Len returns the number of stored entries.
func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
