package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const pushoverAPIURL = "https://api.pushover.net/1/messages.json"

// NotifyHandler sends push notifications through Pushover.
type NotifyHandler struct {
	userKey  string
	apiToken string
	apiURL   string
	client   *http.Client
}

// NewNotifyHandler creates the notification handler. Empty credentials leave
// the handler unconfigured; requests then fail with 503.
func NewNotifyHandler(userKey, apiToken string) *NotifyHandler {
	return &NotifyHandler{
		userKey:  userKey,
		apiToken: apiToken,
		apiURL:   pushoverAPIURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// notifyRequest is the inbound shape for POST /notify.
type notifyRequest struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
	URL      string `json:"url"`
	URLTitle string `json:"url_title"`
}

func (req *notifyRequest) validate() string {
	switch {
	case req.Message == "" || len(req.Message) > 1024:
		return "message is required and must be at most 1024 characters"
	case len(req.Title) > 250:
		return "title must be at most 250 characters"
	case req.Priority < -2 || req.Priority > 2:
		return "priority must be between -2 and 2"
	case len(req.URL) > 512:
		return "url must be at most 512 characters"
	case len(req.URLTitle) > 100:
		return "url_title must be at most 100 characters"
	}
	return ""
}

// Send handles POST /notify.
func (h *NotifyHandler) Send(w http.ResponseWriter, r *http.Request) {
	if h.userKey == "" || h.apiToken == "" {
		respondError(w, http.StatusServiceUnavailable, "gateway_error", "pushover not configured")
		return
	}

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, "invalid_request_error", msg)
		return
	}

	form := url.Values{}
	form.Set("token", h.apiToken)
	form.Set("user", h.userKey)
	form.Set("message", req.Message)
	if req.Title != "" {
		form.Set("title", req.Title)
	}
	if req.Priority != 0 {
		form.Set("priority", strconv.Itoa(req.Priority))
	}
	if req.URL != "" {
		form.Set("url", req.URL)
	}
	if req.URLTitle != "" {
		form.Set("url_title", req.URLTitle)
	}
	// Emergency priority requires retry and expire parameters.
	if req.Priority == 2 {
		form.Set("retry", "60")
		form.Set("expire", "3600")
	}

	httpReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "gateway_error", "failed to build notification request")
		return
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		respondError(w, http.StatusBadGateway, "upstream_error", "pushover unreachable")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		respondError(w, http.StatusBadGateway, "upstream_error", "failed to read pushover response")
		return
	}

	if resp.StatusCode != http.StatusOK {
		respondError(w, resp.StatusCode, "upstream_error", string(body))
		return
	}

	parsed := gjson.ParseBytes(body)
	if parsed.Get("status").Int() != 1 {
		respondError(w, http.StatusBadRequest, "upstream_error", parsed.Get("errors.0").String())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "sent",
		"request": parsed.Get("request").String(),
	})
}
