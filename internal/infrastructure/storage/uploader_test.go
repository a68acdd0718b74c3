package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"medichat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 最小 PNG 头，满足 http.DetectContentType
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func TestLocalUploaderStoresImage(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir, "http://chat.local/", 1024)
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), "scan.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://chat.local/static/files/"))
	assert.Equal(t, ".png", path.Ext(url))

	stored, err := os.ReadFile(filepath.Join(dir, path.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)
}

func TestLocalUploaderRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir, "", 1024)
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), "notes.txt", strings.NewReader("plain text"))
	require.Error(t, err)
	assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalUploaderRejectsOversize(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir, "", int64(len(pngHeader)+4))
	require.NoError(t, err)

	big := append(append([]byte{}, pngHeader...), make([]byte, 64)...)
	_, err = u.Upload(context.Background(), "big.png", bytes.NewReader(big))
	require.Error(t, err)
	assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, pngHeader), nil
	}
	return 0, errors.New("connection dropped")
}

func TestLocalUploaderWriteFailure(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir, "", 0)
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), "x.png", &failingReader{})
	require.Error(t, err)
	assert.Equal(t, errorx.CodeUploadFailed, errorx.GetCode(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
