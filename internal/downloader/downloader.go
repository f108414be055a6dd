// Package downloader implements download of URLs to local files, with support
// for parallel downloads, authentication tokens and progress reporting.
package downloader

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/gomlx/go-transformers/internal/xsync"
	"github.com/pkg/errors"
)

// ProgressCallback is called as the download progresses.
// downloadedBytes is the total downloaded so far; totalBytes may be 0 if the server didn't report a size.
type ProgressCallback func(downloadedBytes, totalBytes int64)

// Manager coordinates a set of downloads, limiting the number of parallel requests.
// Create it with New, and configure it with the MaxParallel and WithAuthToken setters.
//
// A Manager can be shared across multiple hub.Repo objects, so that the parallelism
// limit covers all of them together.
type Manager struct {
	client      *http.Client
	authToken   string
	semaphore   *xsync.Semaphore
	maxParallel int
}

// New creates a Manager with default settings: 20 parallel downloads, no authentication.
func New() *Manager {
	return &Manager{
		client:      &http.Client{},
		maxParallel: 20,
		semaphore:   xsync.NewSemaphore(20),
	}
}

// MaxParallel sets how many downloads may run at the same time.
// If set to <= 0 there is no limit. It returns the updated Manager, so calls can be cascaded.
func (m *Manager) MaxParallel(n int) *Manager {
	m.maxParallel = n
	m.semaphore.Resize(n)
	return m
}

// WithAuthToken sets the token to be used in the requests' "Authorization: Bearer" header.
// Setting it to empty ("") disables authentication. It returns the updated Manager, so calls can be cascaded.
func (m *Manager) WithAuthToken(authToken string) *Manager {
	m.authToken = authToken
	return m
}

// WithClient sets the http.Client used for the requests, useful for testing and custom transports.
// It returns the updated Manager, so calls can be cascaded.
func (m *Manager) WithClient(client *http.Client) *Manager {
	m.client = client
	return m
}

// Download the given url to filePath. The parent directory must already exist.
//
// It blocks until the download finishes or fails, but waits for a free parallel-download
// slot first. The optional callback is called synchronously as bytes arrive.
func (m *Manager) Download(ctx context.Context, url, filePath string, callback ProgressCallback) error {
	m.semaphore.Acquire()
	defer m.semaphore.Release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to create request for %q", url)
	}
	if m.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+m.authToken)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed request to %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("request to %q returned status %d: %q", url, resp.StatusCode, body)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q to download %q", filePath, url)
	}
	var r io.Reader = resp.Body
	if callback != nil {
		r = &progressReader{reader: r, total: max(resp.ContentLength, 0), callback: callback}
		callback(0, max(resp.ContentLength, 0))
	}
	_, err = io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(filePath)
		return errors.Wrapf(err, "failed downloading %q to %q", url, filePath)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %q after downloading %q", filePath, url)
	}
	return nil
}

// progressReader wraps a reader and reports progress to a ProgressCallback.
type progressReader struct {
	reader     io.Reader
	downloaded int64
	total      int64
	callback   ProgressCallback
}

func (r *progressReader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		r.callback(r.downloaded, r.total)
	}
	return
}
