package transfer

import (
	"crypto/sha256"
	"hotfolder/internal/model"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func hashOf(t *testing.T, path string) [32]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return sha256.Sum256(data)
}

func newHandler(lines *[]model.StatusLine) *Handler {
	return New(WithReporter(func(l model.StatusLine) {
		*lines = append(*lines, l)
	}))
}

func TestHandle_Move(t *testing.T) {
	hot, archive := t.TempDir(), t.TempDir()
	src := filepath.Join(hot, "a.txt")
	writeFile(t, src, "x")
	want := hashOf(t, src)

	var lines []model.StatusLine
	outcome, err := newHandler(&lines).Handle(src, archive, model.ModeMove)
	require.NoError(t, err)

	dst := filepath.Join(archive, "a.txt")
	assert.Equal(t, dst, outcome.DstPath)
	assert.False(t, outcome.CrossDevice)
	assert.NoFileExists(t, src)
	assert.Equal(t, want, hashOf(t, dst))

	require.Len(t, lines, 1)
	assert.Equal(t, "Moved "+src+" to "+archive, lines[0].Text)
	assert.Empty(t, lines[0].Err)
}

func TestHandle_Copy(t *testing.T) {
	hot, archive := t.TempDir(), t.TempDir()
	src := filepath.Join(hot, "b.txt")
	writeFile(t, src, "bravo")

	var lines []model.StatusLine
	outcome, err := newHandler(&lines).Handle(src, archive, model.ModeCopy)
	require.NoError(t, err)

	dst := filepath.Join(archive, "b.txt")
	assert.FileExists(t, src)
	assert.Equal(t, hashOf(t, src), hashOf(t, dst))
	assert.Equal(t, int64(5), outcome.Bytes)

	require.Len(t, lines, 1)
	assert.Equal(t, "Copied "+src+" to "+archive, lines[0].Text)
}

func TestHandle_CopyPreservesMode(t *testing.T) {
	hot, archive := t.TempDir(), t.TempDir()
	src := filepath.Join(hot, "run.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.Chmod(src, 0755))

	_, err := New().Handle(src, archive, model.ModeCopy)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(archive, "run.sh"))
	require.NoError(t, err)
	srcInfo, err := os.Stat(src)
	require.NoError(t, err)
	assert.Equal(t, srcInfo.Mode().Perm(), info.Mode().Perm())
}

func TestHandle_OverwriteWins(t *testing.T) {
	for _, mode := range []model.TransferMode{model.ModeMove, model.ModeCopy} {
		t.Run(string(mode), func(t *testing.T) {
			hot, archive := t.TempDir(), t.TempDir()
			src := filepath.Join(hot, "same.txt")
			dst := filepath.Join(archive, "same.txt")
			writeFile(t, dst, "old version that is longer")
			writeFile(t, src, "new")
			want := hashOf(t, src)

			_, err := New().Handle(src, archive, mode)
			require.NoError(t, err)

			assert.Equal(t, want, hashOf(t, dst))
		})
	}
}

func TestHandle_NestedSourceLandsFlat(t *testing.T) {
	hot, archive := t.TempDir(), t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(hot, "sub", "deeper"), 0755))
	src := filepath.Join(hot, "sub", "deeper", "c.txt")
	writeFile(t, src, "c")

	outcome, err := New().Handle(src, archive, model.ModeMove)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archive, "c.txt"), outcome.DstPath)
	assert.FileExists(t, outcome.DstPath)
}

func TestHandle_SourceVanished(t *testing.T) {
	hot, archive := t.TempDir(), t.TempDir()
	src := filepath.Join(hot, "gone.txt")

	for _, mode := range []model.TransferMode{model.ModeMove, model.ModeCopy} {
		var lines []model.StatusLine
		_, err := newHandler(&lines).Handle(src, archive, mode)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSourceVanished)
		assert.ErrorIs(t, err, os.ErrNotExist)

		require.Len(t, lines, 1)
		assert.Contains(t, lines[0].Text, "SourceVanished")
		assert.Contains(t, lines[0].Text, src)
	}
}

func TestHandle_DestinationMissing(t *testing.T) {
	hot := t.TempDir()
	archive := filepath.Join(t.TempDir(), "archive")
	src := filepath.Join(hot, "a.txt")
	writeFile(t, src, "x")

	var lines []model.StatusLine
	_, err := newHandler(&lines).Handle(src, archive, model.ModeMove)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDestinationUnwritable)
	assert.FileExists(t, src, "source must stay put when the transfer fails")

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Text, "Failed to move "+src+" to "+archive+": DestinationUnwritable")
	assert.NotEmpty(t, lines[0].Err)
}

func TestHandle_DestinationIsFile(t *testing.T) {
	hot, other := t.TempDir(), t.TempDir()
	src := filepath.Join(hot, "a.txt")
	writeFile(t, src, "x")
	notDir := filepath.Join(other, "file")
	writeFile(t, notDir, "")

	_, err := New().Handle(src, notDir, model.ModeCopy)
	assert.ErrorIs(t, err, ErrDestinationUnwritable)
}

func TestHandle_DestinationEntryIsDirectory(t *testing.T) {
	hot, archive := t.TempDir(), t.TempDir()
	src := filepath.Join(hot, "a.txt")
	writeFile(t, src, "x")
	require.NoError(t, os.Mkdir(filepath.Join(archive, "a.txt"), 0755))

	_, err := New().Handle(src, archive, model.ModeMove)
	assert.ErrorIs(t, err, ErrDestinationUnwritable)
	assert.FileExists(t, src)
}

func TestHandle_SourceAlreadyInDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	writeFile(t, src, "x")

	var lines []model.StatusLine
	_, err := newHandler(&lines).Handle(src, dir, model.ModeCopy)
	require.Error(t, err)
	assert.Equal(t, "TransferFailed", KindName(err))
	assert.FileExists(t, src)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Text, "TransferFailed")
}

func TestDescribe(t *testing.T) {
	line := Describe("/hot/a.txt", "/archive", model.ModeMove, nil)
	assert.Equal(t, "Moved /hot/a.txt to /archive", line.Text)
	assert.Equal(t, "/hot/a.txt", line.SrcPath)

	line = Describe("/hot/b.txt", "/archive", model.ModeCopy, nil)
	assert.Equal(t, "Copied /hot/b.txt to /archive", line.String())

	err := newError(ErrDestinationUnwritable, "/hot/b.txt", os.ErrPermission)
	line = Describe("/hot/b.txt", "/archive", model.ModeCopy, err)
	assert.Equal(t, "Failed to copy /hot/b.txt to /archive: DestinationUnwritable: permission denied", line.Text)
	assert.Equal(t, "destination unwritable: permission denied", line.Err)
}
