package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_MissingFile(t *testing.T) {
	f := NewFileStore(filepath.Join(t.TempDir(), "absent.yaml"))

	v, ok, err := f.GetValue(PatternsKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestFileStore_PreservesOtherSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("other.tool:\n  theme: dark\n"), 0o600))

	f := NewFileStore(path)
	require.NoError(t, f.SetValue(StopOnBuildErrorKey, "True"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "other.tool")
	assert.Contains(t, string(data), "theme: dark")

	v, ok, err := f.GetValue(StopOnBuildErrorKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "True", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("colorout.options: [unclosed\n"), 0o600))

	f := NewFileStore(path)
	_, _, err := f.GetValue(PatternsKey)
	assert.Error(t, err)

	// Saving replaces the corrupt content
	require.NoError(t, f.SetValues(map[string]string{PatternsKey: "[]", StopOnBuildErrorKey: "False"}))
	v, ok, err := f.GetValue(PatternsKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)
}

func TestFileStore_NoTemporaryFilesLeft(t *testing.T) {
	dir := t.TempDir()
	f := NewFileStore(filepath.Join(dir, "settings.yaml"))

	for i := 0; i < 3; i++ {
		require.NoError(t, f.SetValues(map[string]string{PatternsKey: "[]", StopOnBuildErrorKey: "False"}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "settings.yaml", entries[0].Name())
}
