package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/colorout/pkg/interfaces"
)

// FileStore keeps settings in a YAML file. The file maps logical paths to
// key/value tables, so several tools can share one settings file:
//
//	colorout.options:
//	  RegExPatterns: '[{"RegExPattern":"error", ...}]'
//	  StopOnBuildError: "False"
type FileStore struct {
	path string
	mu   sync.Mutex
}

// Ensure FileStore implements KeyValueStore
var _ interfaces.KeyValueStore = (*FileStore)(nil)

// NewFileStore creates a store backed by the file at path. The file is
// created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (f *FileStore) Path() string {
	return f.path
}

// GetValue implements KeyValueStore
func (f *FileStore) GetValue(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := doc[LogicalPath][key]
	return v, ok, nil
}

// SetValue implements KeyValueStore
func (f *FileStore) SetValue(key, value string) error {
	return f.SetValues(map[string]string{key: value})
}

// SetValues implements KeyValueStore. The whole file is rewritten through a
// temporary file and renamed into place, so readers never see a partial
// update.
func (f *FileStore) SetValues(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		// A corrupt file must not block saving fresh settings
		doc = map[string]map[string]string{}
	}
	section := doc[LogicalPath]
	if section == nil {
		section = map[string]string{}
		doc[LogicalPath] = section
	}
	for k, v := range values {
		section[k] = v
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return writeFileAtomic(f.path, data)
}

func (f *FileStore) read() (map[string]map[string]string, error) {
	// #nosec G304 - the settings path comes from configuration
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	doc := map[string]map[string]string{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", f.path, err)
	}
	if doc == nil {
		doc = map[string]map[string]string{}
	}
	return doc, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
