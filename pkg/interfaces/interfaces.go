// Package interfaces defines the core interfaces used throughout the application.
package interfaces

import "github.com/Veraticus/colorout/pkg/types"

// KeyValueStore is the persistence medium for settings. Values live under a
// fixed logical path chosen by the implementation.
type KeyValueStore interface {
	// GetValue returns the value and whether the key exists
	GetValue(key string) (string, bool, error)
	SetValue(key, value string) error
	// SetValues writes all keys so a later read sees either all or none of them
	SetValues(values map[string]string) error
}

// SpanClassifier classifies spans of output text.
type SpanClassifier interface {
	Classify(span types.Span) types.Result
}

// ProcessWrapper wraps and monitors a process.
type ProcessWrapper interface {
	Start(command string, args []string) error
	Wait() error
	ExitCode() int
}

// OutputHandler processes output lines.
type OutputHandler interface {
	HandleLine(line string)
}

// DataHandler processes raw output data.
type DataHandler interface {
	OutputHandler
	HandleData(data []byte)
}

// ClassificationObserver is told about every classified line.
type ClassificationObserver interface {
	Observe(line string, result types.Result)
}
