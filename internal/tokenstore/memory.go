package tokenstore

import (
	"context"
	"sync"
	"time"
)

// Memory is the default backing used when no database is configured.
// The mutex guards only map access; nothing slow runs inside it.
type Memory[V any] struct {
	mu      sync.Mutex
	entries map[string]Entry[V]
}

func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{
		entries: make(map[string]Entry[V]),
	}
}

func (m *Memory[V]) Put(_ context.Context, entry Entry[V]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Token] = entry
	return nil
}

func (m *Memory[V]) Get(_ context.Context, token string) (Entry[V], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[token]
	if !ok {
		return Entry[V]{}, ErrNotFound
	}
	if !entry.ExpiresAt.After(time.Now().UTC()) {
		delete(m.entries, token)
		return Entry[V]{}, ErrNotFound
	}
	return entry, nil
}

func (m *Memory[V]) Update(_ context.Context, token string, fn func(V) V) (Entry[V], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[token]
	if !ok || !entry.ExpiresAt.After(time.Now().UTC()) {
		delete(m.entries, token)
		return Entry[V]{}, ErrNotFound
	}

	entry.Value = fn(entry.Value)
	m.entries[token] = entry
	return entry, nil
}

func (m *Memory[V]) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, token)
	return nil
}

func (m *Memory[V]) PurgeExpired(_ context.Context) ([]Entry[V], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var purged []Entry[V]
	for token, entry := range m.entries {
		if !entry.ExpiresAt.After(now) {
			purged = append(purged, entry)
			delete(m.entries, token)
		}
	}
	return purged, nil
}
