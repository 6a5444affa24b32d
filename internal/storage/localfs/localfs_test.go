package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	root := t.TempDir()
	store, err := New(root, "http://localhost:8080/media/")
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "IntroScene.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video bytes"), 0o644))

	url, err := store.Upload(context.Background(), src, "video/mp4")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/media/videos/"), "unexpected url: %s", url)
	assert.True(t, strings.HasSuffix(url, "_IntroScene.mp4"), "unexpected url: %s", url)

	key := strings.TrimPrefix(url, "http://localhost:8080/media/")
	data, err := os.ReadFile(filepath.Join(root, key))
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))
}

func TestUploadKeysAreUnique(t *testing.T) {
	store, err := New(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "v.mp4")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	a, err := store.Upload(context.Background(), src, "video/mp4")
	require.NoError(t, err)
	b, err := store.Upload(context.Background(), src, "video/mp4")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("", "http://localhost")
	assert.Error(t, err)
}
