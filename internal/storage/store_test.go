package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNewStoreCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	s, err := NewStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(s.BaseDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveAndRead(t *testing.T) {
	s := newStore(t)

	data := []byte("%PDF-1.4 test contents")
	path, err := s.Save(data, "result", ".pdf")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasSuffix(path, ".pdf"))
	assert.True(t, s.Exists(path))

	got, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	s := newStore(t)

	a, err := s.Save([]byte("a"), "result", ".pdf")
	require.NoError(t, err)
	b, err := s.Save([]byte("b"), "result", ".pdf")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPathDoesNotCreateFile(t *testing.T) {
	s := newStore(t)

	path := s.Path("approved_result", ".pdf")
	assert.True(t, strings.HasPrefix(path, s.BaseDir()))
	assert.False(t, s.Exists(path))
}

func TestReadRejectsEscapingPaths(t *testing.T) {
	s := newStore(t)

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o640))

	_, err := s.Read(outside)
	assert.Error(t, err)

	_, err = s.Read(filepath.Join(s.BaseDir(), "..", filepath.Base(outside)))
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	s := newStore(t)

	path, err := s.Save([]byte("data"), "result", ".pdf")
	require.NoError(t, err)

	require.NoError(t, s.Remove(path))
	assert.False(t, s.Exists(path))

	// Removing again is fine; cleanup paths run unconditionally.
	assert.NoError(t, s.Remove(path))
	assert.NoError(t, s.Remove(""))
}

func TestRemoveRejectsEscapingPaths(t *testing.T) {
	s := newStore(t)

	outside := filepath.Join(t.TempDir(), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o640))

	assert.Error(t, s.Remove(outside))
	_, err := os.Stat(outside)
	assert.NoError(t, err)
}
