package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardNotConfigured(t *testing.T) {
	f := New("", "key", time.Second)

	assert.False(t, f.Configured())

	_, err := f.Forward(context.Background(), http.MethodGet, "/kb/search", "", "", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestForwardPassesRequestVerbatim(t *testing.T) {
	var gotPath, gotQuery, gotKey, gotBody, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-API-Key")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": "doc-1"}`)
	}))
	defer srv.Close()

	f := New(srv.URL, "kb-secret", time.Second)
	resp, err := f.Forward(
		context.Background(),
		http.MethodPost,
		"/kb/documents",
		"tag=a&tag=b",
		"application/json",
		strings.NewReader(`{"title": "note"}`),
	)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v1/kb/documents", gotPath)
	assert.Equal(t, "tag=a&tag=b", gotQuery, "repeated query keys survive byte-for-byte")
	assert.Equal(t, "kb-secret", gotKey)
	assert.Equal(t, `{"title": "note"}`, gotBody)

	// Upstream status and body pass through unchanged.
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.Equal(t, `{"id": "doc-1"}`, string(resp.Body))
}

func TestForwardUpstreamErrorStatusPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(srv.URL, "", time.Second)
	resp, err := f.Forward(context.Background(), http.MethodGet, "/kb/documents/missing", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestForwardTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	f := New(srv.URL, "", 50*time.Millisecond)
	_, err := f.Forward(context.Background(), http.MethodGet, "/kb/search", "", "", nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestForwardUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	f := New(srv.URL, "", time.Second)
	_, err := f.Forward(context.Background(), http.MethodGet, "/kb/search", "", "", nil)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestForwardDefaultsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Content-Type set by upstream.
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(srv.URL, "", time.Second)
	resp, err := f.Forward(context.Background(), http.MethodGet, "/kb/ping", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", resp.ContentType)
}
