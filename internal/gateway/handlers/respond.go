package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"

	"github.com/rbent/api-gateway/internal/googleauth"
)

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

// respondError writes the gateway's JSON error envelope.
func respondError(w http.ResponseWriter, status int, errType, msg string) {
	respondJSON(w, status, map[string]any{
		"error": map[string]string{"message": msg, "type": errType},
	})
}

// respondGoogleError maps a failed Google call onto a gateway status. Auth
// failures are reported without the upstream body; other Google errors keep
// their status and message for debuggability.
func respondGoogleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, googleauth.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "auth_error", "google credentials not configured")
	case errors.Is(err, googleauth.ErrUpstreamAuth):
		respondError(w, http.StatusBadGateway, "upstream_auth_error", "google rejected the gateway credentials")
	default:
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code >= 400 {
			respondError(w, gerr.Code, "upstream_error", gerr.Message)
			return
		}
		log.Warn().Err(err).Msg("google api call failed")
		respondError(w, http.StatusBadGateway, "upstream_error", "google api request failed")
	}
}
