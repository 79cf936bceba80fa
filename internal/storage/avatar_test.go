package storage

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a real multipart.FileHeader by round-tripping a form.
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("avatar", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["avatar"][0]
}

func TestSaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewAvatarStore(dir, 1024)
	require.NoError(t, err)

	path, err := store.Save(fileHeader(t, "Me.PNG", []byte("png-bytes")))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".png", filepath.Ext(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), content)

	require.NoError(t, store.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Remove(path), "removing twice is a no-op")
	require.NoError(t, store.Remove(""), "empty path is a no-op")
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	store, err := NewAvatarStore(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = store.Save(fileHeader(t, "big.png", []byte("too many bytes")))
	require.ErrorIs(t, err, ErrAvatarTooLarge)
}

func TestRemoveRefusesPathsOutsideDir(t *testing.T) {
	store, err := NewAvatarStore(t.TempDir(), 0)
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	require.ErrorIs(t, store.Remove(outside), ErrOutsideUploadDir)
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}
