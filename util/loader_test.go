package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectoryImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-10.jpg", "frame-2.png", "cover.jpg", "notes.txt", "frame-1.bmp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
		assert.Equal(t, filepath.Base(f.Path), string(f.Data))
	}
	assert.Equal(t, []string{"frame-1.bmp", "frame-2.png", "frame-10.jpg", "cover.jpg"}, names)
	assert.Equal(t, 10, files[2].Frame)
	assert.Equal(t, -1, files[3].Frame)
}

func TestLoadDirectoryImagesMissing(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoadImageFile(t *testing.T) {
	_, err := LoadImageFile("notes.txt")
	assert.Error(t, err)

	_, err = LoadImageFile(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestFrameNumber(t *testing.T) {
	tests := map[string]int{
		"frame-12.jpg": 12,
		"0007.png":     7,
		"cover.jpg":    -1,
		"a1b.jpg":      -1,
	}
	for name, want := range tests {
		assert.Equal(t, want, frameNumber(name), name)
	}
}
