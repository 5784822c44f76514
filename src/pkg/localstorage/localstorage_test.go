package localstorage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, files map[string]string) *FileStore {
	t.Helper()
	s := NewFileStore(t.TempDir())
	for key, content := range files {
		require.NoError(t, os.WriteFile(s.Path(key), []byte(content), 0600))
	}
	return s
}

func readKey(t *testing.T, s *FileStore, key string) string {
	t.Helper()
	b, err := os.ReadFile(s.Path(key))
	require.NoError(t, err)
	return string(b)
}

func TestRelocate(t *testing.T) {
	s := newStore(t, map[string]string{"x": "X"})

	require.NoError(t, s.Relocate("x", "y"))
	assert.False(t, s.Exists("x"))
	assert.True(t, s.Exists("y"))
	assert.Equal(t, "X", readKey(t, s, "y"))
}

func TestRelocate_MissingSource(t *testing.T) {
	s := newStore(t, nil)
	require.NoError(t, s.Relocate("x", "y"))
	assert.False(t, s.Exists("y"))
}

func TestRelocate_SameKey(t *testing.T) {
	s := newStore(t, map[string]string{"x": "X"})
	require.NoError(t, s.Relocate("x", "x"))
	assert.Equal(t, "X", readKey(t, s, "x"))
}

func TestRelocate_Conflict(t *testing.T) {
	s := newStore(t, map[string]string{"x": "X", "y": "Y"})

	err := s.Relocate("x", "y")
	assert.ErrorIs(t, err, ErrRelocationConflict)
	// 不覆盖目标，源文件保留
	assert.Equal(t, "Y", readKey(t, s, "y"))
	assert.Equal(t, "X", readKey(t, s, "x"))
}

func TestRelocate_InvalidKey(t *testing.T) {
	s := newStore(t, nil)
	for _, key := range []string{"", ".", "..", "../escape", `a\b`} {
		assert.Error(t, s.Relocate(key, "y"), key)
		assert.Error(t, s.Relocate("x", key), key)
		assert.Error(t, s.Delete(key), key)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t, map[string]string{"x": "X"})
	require.NoError(t, s.Delete("x"))
	assert.False(t, s.Exists("x"))
	assert.NoError(t, s.Delete("x"), "missing file is not an error")
}

func TestPath(t *testing.T) {
	s := NewFileStore("/data/lens-local-storage")
	assert.Equal(t, "/data/lens-local-storage/abc.json", s.Path("abc"))
}
