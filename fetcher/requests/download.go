// Package requests implements the remote transfer used to mirror
// logfiles locally.
package requests

import (
	"context"
	"crawlstats/pkg/messages"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Downloader mirrors remote resources with resumable semantics.
type Downloader struct {
	client     *http.Client
	maxRetries int
}

// Create the downloader with a per-request timeout.
func CreateDownloader(timeout time.Duration, maxRetries int) *Downloader {
	return &Downloader{
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// Download fetches the resource into dest, resuming from the current
// local size when the server supports ranges. Returns the final local
// byte size.
func (d *Downloader) Download(ctx context.Context, url, dest string) (int64, error) {
	var lastErr error

	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		size, err := d.downloadOnce(ctx, url, dest)
		if err == nil {
			return size, nil
		}
		lastErr = err
		if attempt == d.maxRetries {
			break
		}

		// Never retry past a cancelled context.
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	return 0, fmt.Errorf(messages.DownloadFailedMsg+": %w", url, lastErr)
}

func (d *Downloader) downloadOnce(ctx context.Context, url, dest string) (int64, error) {
	localSize := int64(0)
	if info, err := os.Stat(dest); err == nil {
		localSize = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	if localSize > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", localSize))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// Append the new tail.
		return appendBody(dest, resp.Body, localSize)

	case http.StatusOK:
		// Server ignored the range, rewrite the whole mirror.
		return writeBody(dest, resp.Body)

	case http.StatusRequestedRangeNotSatisfiable:
		// Nothing new past our local size.
		return localSize, nil

	default:
		return 0, fmt.Errorf(messages.BadStatusCodeMsg, resp.StatusCode, url)
	}
}

func appendBody(dest string, body io.Reader, localSize int64) (int64, error) {
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	written, err := io.Copy(file, body)
	if err != nil {
		return 0, err
	}

	return localSize + written, nil
}

func writeBody(dest string, body io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}

	file, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return io.Copy(file, body)
}
