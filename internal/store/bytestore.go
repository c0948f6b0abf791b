// Package store persists registry snapshots. A Gateway serializes snapshots to a
// ByteStore under a fixed key and owns the import/export format; backends decide
// where the bytes live (a file, a SQLite table, memory).
package store

import (
	"errors"
	"maps"
	"slices"
	"sync"
)

// ErrNotFound is returned by a ByteStore when the key holds no value.
var ErrNotFound = errors.New("key not found")

// ByteStore is a durable key/value byte store. Writes are full overwrites.
type ByteStore interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
	Close() error
}

// MemoryStore is an in-process ByteStore for tests and dry runs.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte

	// FailPut, when set, is returned by every Put.
	FailPut error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements ByteStore.
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

// Put implements ByteStore.
func (m *MemoryStore) Put(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut != nil {
		return m.FailPut
	}
	m.data[key] = slices.Clone(data)
	return nil
}

// Delete implements ByteStore. Deleting a missing key is not an error.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.data))
}

// Close implements ByteStore.
func (m *MemoryStore) Close() error { return nil }
