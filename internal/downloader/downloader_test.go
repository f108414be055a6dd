package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	const content = "hello, this is the file content"
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	filePath := filepath.Join(t.TempDir(), "downloaded.txt")
	var lastDownloaded, lastTotal int64
	err := New().WithAuthToken("secret").Download(context.Background(), server.URL, filePath,
		func(downloadedBytes, totalBytes int64) {
			lastDownloaded, lastTotal = downloadedBytes, totalBytes
		})
	require.NoError(t, err)

	got, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, int64(len(content)), lastDownloaded)
	assert.Equal(t, int64(len(content)), lastTotal)
}

func TestDownloadErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	filePath := filepath.Join(t.TempDir(), "missing.txt")
	err := New().Download(context.Background(), server.URL, filePath, nil)
	require.ErrorContains(t, err, "404")
	assert.NoFileExists(t, filePath)
}

func TestDownloadContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	err := New().Download(ctx, server.URL, filepath.Join(t.TempDir(), "f"), nil)
	require.Error(t, err)
}
