package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestSearchNotConfigured(t *testing.T) {
	h := NewSearchHandler("")

	req := httptest.NewRequest(http.MethodPost, "/search/web", strings.NewReader(`{"query": "go"}`))
	rec := httptest.NewRecorder()
	h.Web(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/search/web/fetch", strings.NewReader(`{"url": "https://example.com"}`))
	rec = httptest.NewRecorder()
	h.Fetch(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearchValidation(t *testing.T) {
	h := NewSearchHandler("tavily-key")

	tests := []struct {
		name string
		body string
	}{
		{"missing query", `{}`},
		{"bad depth", `{"query": "go", "search_depth": "exhaustive"}`},
		{"invalid json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/search/web", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Web(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSearchWeb(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"query": "go generics", "results": [{"title": "Go blog", "url": "https://go.dev/blog"}]}`)
	}))
	defer srv.Close()

	h := NewSearchHandler("tavily-key")
	h.apiURL = srv.URL

	req := httptest.NewRequest(http.MethodPost, "/search/web", strings.NewReader(`{"query": "go generics"}`))
	rec := httptest.NewRecorder()
	h.Web(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/search", gotPath)
	assert.Equal(t, "tavily-key", gotPayload["api_key"])
	assert.Equal(t, "go generics", gotPayload["query"])
	assert.Equal(t, float64(5), gotPayload["max_results"], "default result budget applied")
	assert.Equal(t, "basic", gotPayload["search_depth"])

	// Upstream body passes through verbatim.
	assert.Equal(t, "Go blog", gjson.Get(rec.Body.String(), "results.0.title").String())
}

func TestSearchFetch(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		fmt.Fprint(w, `{"results": [{"url": "https://example.com", "raw_content": "hello"}]}`)
	}))
	defer srv.Close()

	h := NewSearchHandler("tavily-key")
	h.apiURL = srv.URL

	req := httptest.NewRequest(http.MethodPost, "/search/web/fetch", strings.NewReader(`{"url": "https://example.com"}`))
	rec := httptest.NewRecorder()
	h.Fetch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/extract", gotPath)
	assert.Equal(t, []any{"https://example.com"}, gotPayload["urls"])
	assert.Equal(t, "hello", gjson.Get(rec.Body.String(), "results.0.raw_content").String())
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	h := NewSearchHandler("tavily-key")
	h.apiURL = srv.URL

	req := httptest.NewRequest(http.MethodPost, "/search/web", strings.NewReader(`{"query": "go"}`))
	rec := httptest.NewRecorder()
	h.Web(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "quota exceeded")
}
