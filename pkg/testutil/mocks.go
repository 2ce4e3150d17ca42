// Package testutil provides test doubles shared across packages.
package testutil

import (
	"bytes"
	"errors"
	"sync"

	"github.com/Veraticus/colorout/pkg/interfaces"
	"github.com/Veraticus/colorout/pkg/types"
)

// MockClassifier is a thread-safe mock implementation of interfaces.SpanClassifier
type MockClassifier struct {
	mu        sync.Mutex
	classify  func(text string) types.Result
	spans     []string
	callCount int
}

// Ensure MockClassifier implements SpanClassifier
var _ interfaces.SpanClassifier = (*MockClassifier)(nil)

// NewMockClassifier creates a mock that answers with fn, or types.NoMatch
// when fn is nil
func NewMockClassifier(fn func(text string) types.Result) *MockClassifier {
	return &MockClassifier{classify: fn}
}

// Classify implements the SpanClassifier interface
func (m *MockClassifier) Classify(span types.Span) types.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.spans = append(m.spans, span.Text)
	if m.classify == nil {
		return types.NoMatch
	}
	return m.classify(span.Text)
}

// GetSpans returns a copy of the classified span texts in order
func (m *MockClassifier) GetSpans() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.spans))
	copy(result, m.spans)
	return result
}

// GetCallCount returns how many times Classify was called
func (m *MockClassifier) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// SafeBuffer is a bytes.Buffer safe for concurrent writers and readers
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	err error
}

// ErrWrite is returned by SafeBuffer when a write error is set
var ErrWrite = errors.New("write failed")

// Write implements io.Writer
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, b.err
	}
	return b.buf.Write(p)
}

// String returns everything written so far
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// SetError makes subsequent writes fail with err (nil clears it)
func (b *SafeBuffer) SetError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// MockObserver records observed lines
type MockObserver struct {
	mu      sync.Mutex
	lines   []string
	results []types.Result
}

// Ensure MockObserver implements ClassificationObserver
var _ interfaces.ClassificationObserver = (*MockObserver)(nil)

// Observe implements the ClassificationObserver interface
func (m *MockObserver) Observe(line string, result types.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, line)
	m.results = append(m.results, result)
}

// GetLines returns a copy of the observed lines
func (m *MockObserver) GetLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.lines))
	copy(result, m.lines)
	return result
}

// GetResults returns a copy of the observed results
func (m *MockObserver) GetResults() []types.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]types.Result, len(m.results))
	copy(result, m.results)
	return result
}
