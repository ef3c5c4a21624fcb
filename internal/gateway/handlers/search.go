package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

const tavilyAPIURL = "https://api.tavily.com"

// SearchHandler fronts the Tavily web-search API: query search and readable
// text extraction from a URL.
type SearchHandler struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewSearchHandler creates the search handler. An empty key leaves it
// unconfigured; requests then fail with 503.
func NewSearchHandler(apiKey string) *SearchHandler {
	return &SearchHandler{
		apiKey: apiKey,
		apiURL: tavilyAPIURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// webSearchRequest is the inbound shape for POST /search/web.
type webSearchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

// fetchURLRequest is the inbound shape for POST /search/web/fetch.
type fetchURLRequest struct {
	URL string `json:"url"`
}

// Web handles POST /search/web.
func (h *SearchHandler) Web(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" {
		respondError(w, http.StatusServiceUnavailable, "gateway_error", "tavily api key not configured")
		return
	}

	var req webSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}
	if req.SearchDepth == "" {
		req.SearchDepth = "basic"
	}
	if req.SearchDepth != "basic" && req.SearchDepth != "advanced" {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "search_depth must be basic or advanced")
		return
	}

	h.post(w, r, "/search", map[string]any{
		"api_key":      h.apiKey,
		"query":        req.Query,
		"max_results":  req.MaxResults,
		"search_depth": req.SearchDepth,
	})
}

// Fetch handles POST /search/web/fetch.
func (h *SearchHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" {
		respondError(w, http.StatusServiceUnavailable, "gateway_error", "tavily api key not configured")
		return
	}

	var req fetchURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "url is required")
		return
	}

	h.post(w, r, "/extract", map[string]any{
		"api_key": h.apiKey,
		"urls":    []string{req.URL},
	})
}

// post issues one Tavily call and relays the answer. A non-200 upstream
// answer surfaces as 502 with the upstream body for debuggability; a 200
// body passes through verbatim.
func (h *SearchHandler) post(w http.ResponseWriter, r *http.Request, path string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "gateway_error", "failed to encode search request")
		return
	}

	httpReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.apiURL+path, bytes.NewReader(body))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "gateway_error", "failed to build search request")
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		respondError(w, http.StatusBadGateway, "upstream_error", "tavily unreachable")
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		respondError(w, http.StatusBadGateway, "upstream_error", "failed to read tavily response")
		return
	}

	if resp.StatusCode != http.StatusOK {
		respondError(w, http.StatusBadGateway, "upstream_error", "tavily api error: "+string(respBody))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(respBody)
}
