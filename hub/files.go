package hub

import (
	"context"
	"iter"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/go-transformers/internal/downloader"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// IterFileNames iterate over the file names stored in the repo.
// It doesn't trigger the downloading of the repo, only of the repo info.
func (r *Repo) IterFileNames() iter.Seq2[string, error] {
	// Download info and files.
	err := r.DownloadInfo(false)
	if err != nil {
		// Error downloading: yield error only.
		return func(yield func(string, error) bool) {
			yield("", err)
		}
	}
	return func(yield func(string, error) bool) {
		for _, si := range r.info.Siblings {
			fileName := si.Name
			if path.IsAbs(fileName) || strings.Index(fileName, "..") != -1 {
				yield("", errors.Errorf("model %q contains illegal file name %q -- it cannot be an absolute path, nor contain \"..\"",
					r.ID, fileName))
				return
			}
			if !yield(fileName, nil) {
				return
			}
		}
	}
}

// HasFile returns whether the repo lists the given file name.
// It triggers the downloading of the repo info, if it hasn't been downloaded yet, and
// returns false if the info couldn't be downloaded.
func (r *Repo) HasFile(fileName string) bool {
	for name, err := range r.IterFileNames() {
		if err != nil {
			log.Printf("Error while checking for file %q in repo %q: %+v", fileName, r.ID, err)
			return false
		}
		if name == fileName {
			return true
		}
	}
	return false
}

// cleanRelativeFilePath normalizes a repo file name to a clean relative path, using the
// current OS separator. Absolute prefixes and ".." components escaping the root are dropped.
func cleanRelativeFilePath(fileName string) string {
	fileName = path.Join("/", fileName)
	fileName = strings.TrimPrefix(fileName, "/")
	if fileName == "" {
		fileName = "."
	}
	return filepath.FromSlash(fileName)
}

// DownloadFiles downloads the repository files, and return the path to the downloaded files in the cache structure.
// The returned downloadedPaths can be read, but shouldn't be modified, since there may be other programs using the same
// files.
//
// Files already present in the cache for the current revision are not downloaded again.
func (r *Repo) DownloadFiles(fileNames ...string) (downloadedPaths []string, err error) {
	if len(fileNames) == 0 {
		return
	}

	var snapshotsDir string
	snapshotsDir, err = r.repoSnapshotsDir()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	downloadedPaths = make([]string, 0, len(fileNames))
	for _, fileName := range fileNames {
		var url string
		url, err = r.FileURL(fileName)
		if err != nil {
			return nil, err
		}
		filePath := path.Join(snapshotsDir, cleanRelativeFilePath(fileName))
		var progressCallback downloader.ProgressCallback
		var bar *progressbar.ProgressBar
		if r.useProgressBar && !fileExists(filePath) {
			bar = progressbar.DefaultBytes(-1, fileName)
			progressCallback = func(downloadedBytes, totalBytes int64) {
				if totalBytes > 0 {
					bar.ChangeMax64(totalBytes)
				}
				_ = bar.Set64(downloadedBytes)
			}
		}
		err = r.lockedDownload(ctx, url, filePath, false, progressCallback)
		if bar != nil {
			_ = bar.Close()
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "while downloading file %q from repo %q", fileName, r.ID)
		}
		if r.Verbosity >= 2 {
			if fi, statErr := os.Stat(filePath); statErr == nil {
				log.Printf("downloaded %q from %q (%s)", fileName, r.ID, humanize.Bytes(uint64(fi.Size())))
			}
		}
		downloadedPaths = append(downloadedPaths, filePath)
	}
	return
}

// DownloadFile is a shortcut to DownloadFiles with only one file.
func (r *Repo) DownloadFile(file string) (downloadedPath string, err error) {
	res, err := r.DownloadFiles(file)
	if err != nil {
		return "", err
	}
	return res[0], nil
}
