package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rbent/api-gateway/internal/gateway/proxy"
)

// KBHandler relays /kb requests to the knowledge-base service. The upstream
// answer is written back verbatim: status, content type, and body.
type KBHandler struct {
	fwd *proxy.Forwarder
}

// NewKBHandler creates the KB proxy handler.
func NewKBHandler(fwd *proxy.Forwarder) *KBHandler {
	return &KBHandler{fwd: fwd}
}

// Proxy handles any method under /kb and /kb/*.
func (h *KBHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	resp, err := h.fwd.Forward(
		r.Context(),
		r.Method,
		r.URL.Path,
		r.URL.RawQuery,
		r.Header.Get("Content-Type"),
		r.Body,
	)
	if err != nil {
		switch {
		case errors.Is(err, proxy.ErrNotConfigured):
			respondError(w, http.StatusServiceUnavailable, "gateway_error", "kb service not configured")
		case errors.Is(err, proxy.ErrTimeout):
			respondError(w, http.StatusGatewayTimeout, "gateway_error", "kb service timed out")
		default:
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("kb forward failed")
			respondError(w, http.StatusBadGateway, "gateway_error", "kb service unreachable")
		}
		return
	}

	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}
