package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.txt")

	n, err := AtomicWrite(dst, strings.NewReader("hello"), 0640)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = os.Stat(dst + tmpSuffix)
	assert.True(t, os.IsNotExist(err), "temp file must not be left behind")
}

func TestAtomicWrite_Overwrites(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(dst, []byte("old content"), 0644))

	_, err := AtomicWrite(dst, strings.NewReader("new"), 0644)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestAtomicWrite_MissingDir(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "missing", "out.txt")

	_, err := AtomicWrite(dst, strings.NewReader("x"), 0644)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone")
	assert.NoError(t, RemoveIfExists(path))

	require.NoError(t, os.WriteFile(path, nil, 0644))
	assert.NoError(t, RemoveIfExists(path))
	assert.NoFileExists(t, path)
}

func TestIsWithin(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "hot")

	assert.True(t, IsWithin(root, root))
	assert.True(t, IsWithin(root, filepath.Join(root, "sub")))
	assert.False(t, IsWithin(root, filepath.Join(string(filepath.Separator), "archive")))
	assert.False(t, IsWithin(root, filepath.Join(string(filepath.Separator), "hotter")))
	assert.False(t, IsWithin(filepath.Join(root, "sub"), root))
}
