package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBatchFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "bonus_nse.bt")
	require.NoError(t, os.WriteFile(path, []byte("RETRIEVE COMPANY BONUS"), 0o644))
	return path
}

func buildArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "test-key", r.FormValue("apikey"))
		assert.Equal(t, "json", r.FormValue("format"))

		_, header, err := r.FormFile("batchfile")
		require.NoError(t, err)
		assert.Equal(t, "bonus_nse.bt", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"job-42"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, srv.URL, t.TempDir())

	token, err := client.Submit(context.Background(), writeBatchFile(t, t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "job-42", token)
}

func TestSubmitMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, srv.URL, t.TempDir())

	_, err := client.Submit(context.Background(), writeBatchFile(t, t.TempDir()))
	assert.ErrorIs(t, err, ErrSubmission)
}

func TestSubmitProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, srv.URL, t.TempDir())

	_, err := client.Submit(context.Background(), writeBatchFile(t, t.TempDir()))
	assert.ErrorIs(t, err, ErrSubmission)
}

func TestSubmitMissingDescriptor(t *testing.T) {
	client := NewClient("test-key", "http://localhost", "http://localhost", t.TempDir())

	_, err := client.Submit(context.Background(), filepath.Join(t.TempDir(), "missing.bt"))
	assert.ErrorIs(t, err, ErrSubmission)
}

func TestAwaitResultPollsUntilArchive(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"results/bonus_nse.json": `{"head":[[]],"data":[]}`,
		"results/manifest.lst":   "bonus_nse.json",
	})

	var polls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.FormValue("apikey"))
		assert.Equal(t, "job-42", r.FormValue("token"))

		// Two still-processing responses before delivery
		if atomic.AddInt64(&polls, 1) <= 2 {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"processing"}`))
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write(archive)
	}))
	defer srv.Close()

	staging := t.TempDir()
	client := NewClient("test-key", srv.URL, srv.URL, staging)

	files, err := client.AwaitResult(context.Background(), "job-42", time.Millisecond, time.Second)
	require.NoError(t, err)

	// The manifest is skipped and the entry path is flattened.
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(staging, "bonus_nse.json"), files[0])

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"head":[[]],"data":[]}`, string(content))
	assert.GreaterOrEqual(t, polls, int64(3))
}

func TestAwaitResultTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"processing"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, srv.URL, t.TempDir())

	_, err := client.AwaitResult(context.Background(), "job-42", time.Millisecond, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAwaitResultCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"processing"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, srv.URL, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.AwaitResult(ctx, "job-42", 50*time.Millisecond, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsArchive(t *testing.T) {
	assert.True(t, isArchive("application/zip", []byte("PK\x03\x04rest")))
	assert.True(t, isArchive("application/octet-stream", []byte("PK\x03\x04rest")))

	// JSON status documents are never archives, whatever they contain
	assert.False(t, isArchive("application/json", []byte(`{"status":"processing"}`)))
	assert.False(t, isArchive("application/json; charset=utf-8", []byte("PK")))

	assert.False(t, isArchive("text/plain", []byte("hello")))
	assert.False(t, isArchive("application/zip", []byte("P")))
}
