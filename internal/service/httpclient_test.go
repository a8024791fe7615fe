package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.UseTestMode()
	downloadBackoff = time.Millisecond
	os.Exit(m.Run())
}

func TestHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	status, hdr, err := Head(context.Background(), NewHTTPClient(5*time.Second), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", hdr.Get("Last-Modified"))
}

func TestGetBody_StatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	status, body, err := GetBody(context.Background(), NewHTTPClient(5*time.Second), srv.URL, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body)
}

func TestGetBody_MaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	_, body, err := GetBody(context.Background(), NewHTTPClient(5*time.Second), srv.URL, nil, 128)
	require.NoError(t, err)
	assert.Len(t, body, 128)
}

func TestDownloadToFile_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "out.bin")
	err := DownloadToFile(context.Background(), NewHTTPClient(5*time.Second), srv.URL, dst, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDownloadToFile_NonRetryableStatusFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "out.bin")
	err := DownloadToFile(context.Background(), NewHTTPClient(5*time.Second), srv.URL, dst, 0, 3)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "404 must not be retried")

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr), "failed download must not leave a file")
}

func TestDownloadToFile_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "out.bin")
	err := DownloadToFile(context.Background(), NewHTTPClient(5*time.Second), srv.URL, dst, 0, 3)
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownloadToFile_KeepsPreviousFileOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, os.WriteFile(dst, []byte("previous"), 0o644))

	err := DownloadToFile(context.Background(), NewHTTPClient(5*time.Second), srv.URL, dst, 0, 2)
	assert.Error(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data), "old copy survives a failed download")
}

func TestFetchWithETag(t *testing.T) {
	const etag = `"abc123"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token xyz", r.Header.Get("Authorization"))
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	hdr := http.Header{"Authorization": []string{"token xyz"}}
	api := NewAPIClient(NewHTTPClient(5*time.Second), hdr)

	res, err := api.FetchWithETag(context.Background(), srv.URL, "", 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, etag, res.ETag)
	assert.JSONEq(t, `{"ok":true}`, string(res.Body))

	res2, err := api.FetchWithETag(context.Background(), srv.URL, etag, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, res2.Status)
	assert.Empty(t, res2.Body)
}

func TestNewProxyHTTPClient_InvalidProxy(t *testing.T) {
	_, err := NewProxyHTTPClient(time.Second, "::notaurl", "")
	assert.Error(t, err)
}
