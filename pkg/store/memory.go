// Package store persists rule sets to a key/value medium and loads them
// back, falling back to the built-in rules whenever stored data is unusable.
package store

import (
	"sync"

	"github.com/Veraticus/colorout/pkg/interfaces"
)

// LogicalPath is the fixed location settings are stored under
const LogicalPath = "colorout.options"

// MemoryStore is an in-process medium
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// Ensure MemoryStore implements KeyValueStore
var _ interfaces.KeyValueStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// GetValue implements KeyValueStore
func (m *MemoryStore) GetValue(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// SetValue implements KeyValueStore
func (m *MemoryStore) SetValue(key, value string) error {
	return m.SetValues(map[string]string{key: value})
}

// SetValues implements KeyValueStore
func (m *MemoryStore) SetValues(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}
