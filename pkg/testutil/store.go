package testutil

import (
	"errors"
	"sync"

	"github.com/Veraticus/colorout/pkg/interfaces"
)

// ErrMedium is returned by FaultyStore when a fault is enabled
var ErrMedium = errors.New("medium unavailable")

// FaultyStore is a thread-safe in-memory KeyValueStore whose reads and
// writes can be made to fail.
type FaultyStore struct {
	mu        sync.Mutex
	values    map[string]string
	readErr   error
	writeErr  error
	reads     int
	writes    int
	lastWrite map[string]string
}

// Ensure FaultyStore implements KeyValueStore
var _ interfaces.KeyValueStore = (*FaultyStore)(nil)

// NewFaultyStore creates a store seeded with values
func NewFaultyStore(values map[string]string) *FaultyStore {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &FaultyStore{values: cp}
}

// GetValue implements KeyValueStore
func (f *FaultyStore) GetValue(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return "", false, f.readErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

// SetValue implements KeyValueStore
func (f *FaultyStore) SetValue(key, value string) error {
	return f.SetValues(map[string]string{key: value})
}

// SetValues implements KeyValueStore
func (f *FaultyStore) SetValues(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.lastWrite = make(map[string]string, len(values))
	for k, v := range values {
		f.values[k] = v
		f.lastWrite[k] = v
	}
	return nil
}

// SetReadError makes GetValue fail with err (nil clears it)
func (f *FaultyStore) SetReadError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

// SetWriteError makes SetValues fail with err (nil clears it)
func (f *FaultyStore) SetWriteError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// Value returns the stored value for key
func (f *FaultyStore) Value(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

// LastWrite returns a copy of the keys written by the last successful SetValues
func (f *FaultyStore) LastWrite() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(map[string]string, len(f.lastWrite))
	for k, v := range f.lastWrite {
		cp[k] = v
	}
	return cp
}

// GetWriteCount returns how many times SetValues was called
func (f *FaultyStore) GetWriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}
