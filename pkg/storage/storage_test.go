package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURILocal(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		root string
	}{
		{name: "bare path", uri: "/data/outputs", root: "/data/outputs"},
		{name: "relative path", uri: "outputs", root: "outputs"},
		{name: "file scheme", uri: "file:///data/outputs", root: "/data/outputs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, root, err := ResolveURI(context.Background(), tt.uri)
			require.NoError(t, err)
			defer fs.Close()

			assert.Equal(t, tt.root, root)
			assert.IsType(t, localFS{}, fs)
		})
	}
}

func TestResolveURIUnsupportedScheme(t *testing.T) {
	_, _, err := ResolveURI(context.Background(), "ftp://host/data")
	require.Error(t, err)
}

func TestLocalWriter(t *testing.T) {
	dir := t.TempDir()
	fs := NewLocalFS()

	// Nested directories are created on demand.
	path := filepath.Join(dir, "a", "b", "out.txt")
	w, err := fs.OpenWriter(context.Background(), path)
	require.NoError(t, err)

	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalWriterOverwrites(t *testing.T) {
	dir := t.TempDir()
	fs := NewLocalFS()
	path := filepath.Join(dir, "out.txt")

	for _, content := range []string{"first version", "second"} {
		w, err := fs.OpenWriter(context.Background(), path)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
