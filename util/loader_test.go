package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestFindImageFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"), "png")
	touch(t, filepath.Join(dir, "b.jpg"), "jpg")
	touch(t, filepath.Join(dir, "b.png"), "png")

	path, ok := FindImageFile(dir, "a")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "a.png"), path)

	// .jpg is probed before .png
	path, ok = FindImageFile(dir, "b")
	assert.True(t, ok)
	assert.Contains(t, []string{filepath.Join(dir, "b.jpg"), filepath.Join(dir, "b.JPG")}, path)

	_, ok = FindImageFile(dir, "c")
	assert.False(t, ok)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.xml"), "")
	touch(t, filepath.Join(dir, "a.XML"), "")
	touch(t, filepath.Join(dir, "c.jpg"), "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.xml"), 0o755))

	files, err := ListFiles(dir, ".xml")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.XML"), filepath.Join(dir, "b.xml")}, files)

	_, err = ListFiles(filepath.Join(dir, "missing"), ".xml")
	assert.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	touch(t, src, "pixels")

	dst := filepath.Join(dir, "out", "Nest", "src.jpg")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))
}
