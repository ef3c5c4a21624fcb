package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rbent/api-gateway/internal/shared/config"
	"github.com/rbent/api-gateway/internal/shared/models"
	"github.com/rbent/api-gateway/internal/shared/store"
)

// StatusHandler reports which integrations carry credentials. Checks are
// configuration-only; no upstream probes.
type StatusHandler struct {
	cfg   *config.Config
	store *store.Store
}

// NewStatusHandler creates the status handler. store may be nil.
func NewStatusHandler(cfg *config.Config, st *store.Store) *StatusHandler {
	return &StatusHandler{cfg: cfg, store: st}
}

func (h *StatusHandler) integrations() map[string]models.IntegrationStatus {
	now := time.Now().UTC().Format(time.RFC3339)

	google := h.cfg.GoogleClientID != "" && h.cfg.GoogleClientSecret != "" && h.cfg.GoogleRefreshToken != ""

	build := func(connected bool) models.IntegrationStatus {
		status := "not_configured"
		if connected {
			status = "configured"
		}
		return models.IntegrationStatus{Connected: connected, Status: status, LastCheck: now}
	}

	return map[string]models.IntegrationStatus{
		"google_calendar": build(google),
		"google_email":    build(google),
		"google_tasks":    build(google),
		"google_storage":  build(google),
		"anthropic":       build(h.cfg.AnthropicAPIKey != ""),
		"openrouter":      build(h.cfg.OpenRouterAPIKey != ""),
		"pushover":        build(h.cfg.PushoverUserKey != "" && h.cfg.PushoverAPIToken != ""),
		"tavily":          build(h.cfg.TavilyAPIKey != ""),
		"kb":              build(h.cfg.KBServiceURL != ""),
	}
}

// Integrations handles GET /status/integrations.
func (h *StatusHandler) Integrations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"integrations": h.integrations()})
}

// Integration handles GET /status/integrations/{name}.
func (h *StatusHandler) Integration(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	status, ok := h.integrations()[name]
	if !ok {
		respondError(w, http.StatusNotFound, "invalid_request_error", "unknown integration: "+name)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// Requests handles GET /status/requests, returning recent AI request-log
// rows from the local store.
func (h *StatusHandler) Requests(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "gateway_error", "request log not available")
		return
	}

	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}

	rows, err := h.store.RecentRequests(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "gateway_error", "failed to read request log")
		return
	}
	if rows == nil {
		rows = []models.RequestLog{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"requests": rows})
}
