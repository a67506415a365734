package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte("x"), 0644))
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseDir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	root := t.TempDir()
	_, err = New(Config{BaseDir: root, CreateUploadDirs: true})
	require.NoError(t, err)
	for _, dir := range []string{"books", "articles", "gallery"} {
		info, err := os.Stat(filepath.Join(root, "static", "uploads", dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestStore_Exists(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "static/uploads/books/cover.jpg")
	store, err := New(Config{BaseDir: root})
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		path     string
		expected bool
	}{
		{"static/uploads/books/cover.jpg", true},
		{"static/uploads/books", false},
		{"static/uploads/books/missing.jpg", false},
		{"static/uploads/books/cover.jpg/nested", false},
		{"../outside.jpg", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ok, err := store.Exists(ctx, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestStore_ListDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "static/img/books/b.png")
	writeFile(t, root, "static/img/books/a.png")
	writeFile(t, root, "static/img/books/C.png")
	writeFile(t, root, "static/img/books/sub/d.png")
	store, err := New(Config{BaseDir: root})
	require.NoError(t, err)
	ctx := context.Background()

	names, err := store.ListDirectory(ctx, "static/img/books")
	require.NoError(t, err)
	assert.Equal(t, []string{"C.png", "a.png", "b.png"}, names)

	names, err = store.ListDirectory(ctx, "static/uploads/none")
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}
