package handlers

import (
	"net/http"
	"time"

	"github.com/rbent/api-gateway/internal/shared/store"
)

// HealthHandler serves the unauthenticated health check.
type HealthHandler struct {
	store *store.Store
}

// NewHealthHandler creates the health handler. store may be nil.
func NewHealthHandler(st *store.Store) *HealthHandler {
	return &HealthHandler{store: st}
}

// Health reports gateway status. The request log store is probed as the only
// local dependency; a failing store degrades the gateway but does not stop
// request forwarding.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	respondJSON(w, code, map[string]any{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
