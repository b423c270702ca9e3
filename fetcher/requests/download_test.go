package requests

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rangeServer serves content honoring range requests like the logfile
// hosts do.
func rangeServer(content *string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := *content

		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(body))
			return
		}

		offset, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(rangeHeader, "bytes="), "-"), 10, 64)
		if err != nil || offset > int64(len(body)) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}

		if offset == int64(len(body)) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}

		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, len(body)-1, len(body)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(body[offset:]))
	}))
}

func TestDownloadFreshMirror(t *testing.T) {
	content := "line one\nline two\n"
	server := rangeServer(&content)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "mirror.log")
	d := CreateDownloader(5*time.Second, 3)

	size, err := d.Download(context.Background(), server.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)

	local, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, string(local))
}

func TestDownloadResumesAppendedTail(t *testing.T) {
	content := "line one\n"
	server := rangeServer(&content)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "mirror.log")
	d := CreateDownloader(5*time.Second, 3)

	_, err := d.Download(context.Background(), server.URL, dest)
	require.NoError(t, err)

	// The remote grows, only the tail should transfer.
	content += "line two\n"
	size, err := d.Download(context.Background(), server.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)

	local, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, string(local))
}

func TestDownloadNothingNew(t *testing.T) {
	content := "line one\n"
	server := rangeServer(&content)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "mirror.log")
	d := CreateDownloader(5*time.Second, 3)

	_, err := d.Download(context.Background(), server.URL, dest)
	require.NoError(t, err)

	size, err := d.Download(context.Background(), server.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
}

func TestDownloadSurfacesBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "mirror.log")
	d := CreateDownloader(time.Second, 2)

	_, err := d.Download(context.Background(), server.URL, dest)
	assert.Error(t, err)
}
