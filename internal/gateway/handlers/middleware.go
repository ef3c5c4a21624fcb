package handlers

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rbent/api-gateway/internal/gateway/ratelimit"
)

// Middleware carries the inbound credential and the AI rate limiter.
type Middleware struct {
	apiKey  string
	limiter *ratelimit.Limiter
}

// NewMiddleware creates the middleware set. An empty apiKey disables
// authentication entirely.
func NewMiddleware(apiKey string, limiter *ratelimit.Limiter) *Middleware {
	return &Middleware{apiKey: apiKey, limiter: limiter}
}

// Auth validates the inbound credential. When no key is configured every
// request is admitted; otherwise the caller must present the key in
// X-API-Key or Authorization: Bearer, with X-API-Key taking precedence.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r)
		if key == "" {
			respondError(w, http.StatusUnauthorized, "auth_error", "missing API key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) != 1 {
			respondError(w, http.StatusUnauthorized, "auth_error", "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit enforces the per-caller AI request budget. Requests over budget
// fail fast before any upstream call.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if key == "" {
			key = clientAddr(r)
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.limiter.Budget()))

		if !m.limiter.Allow(key) {
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate_limit_error", "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey extracts the inbound credential. The custom header wins when
// both transport locations are present.
func clientKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// clientAddr returns the caller's address without the port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequestLogger logs one structured line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Info().
			Str("request_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
