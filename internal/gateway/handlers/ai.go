package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/rbent/api-gateway/internal/gateway/providers"
	"github.com/rbent/api-gateway/internal/shared/models"
	"github.com/rbent/api-gateway/internal/shared/store"
)

// ChatHandler serves the AI route.
type ChatHandler struct {
	manager      *providers.Manager
	store        *store.Store
	defaultModel string
}

// NewChatHandler creates the AI route handler. store may be nil, in which
// case requests are not logged.
func NewChatHandler(manager *providers.Manager, st *store.Store, defaultModel string) *ChatHandler {
	return &ChatHandler{manager: manager, store: st, defaultModel: defaultModel}
}

// ChatCompletion handles POST /ai/v1/chat/completions.
func (h *ChatHandler) ChatCompletion(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req providers.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}

	if req.Model == "" {
		req.Model = h.defaultModel
	}

	if req.Stream {
		h.streamChat(w, r, req, start)
		return
	}

	resp, providerName, err := h.manager.ChatCompletion(r.Context(), req)
	if err != nil {
		status := h.respondProviderError(w, err)
		h.logRequest(req, providerName, status, time.Since(start), false, nil, err)
		return
	}

	w.Header().Set("X-Provider", providerName)
	respondJSON(w, http.StatusOK, resp)

	h.logRequest(req, providerName, http.StatusOK, time.Since(start), false, &resp.Usage, nil)
}

// streamChat relays a streaming completion as server-sent events, ending
// with the data: [DONE] sentinel. A caller disconnect cancels the request
// context and stops the upstream read at the next fragment.
func (h *ChatHandler) streamChat(w http.ResponseWriter, r *http.Request, req providers.ChatRequest, start time.Time) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "gateway_error", "streaming not supported")
		return
	}

	stream, providerName, err := h.manager.ChatCompletionStream(r.Context(), req)
	if err != nil {
		status := h.respondProviderError(w, err)
		h.logRequest(req, providerName, status, time.Since(start), true, nil, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Provider", providerName)
	w.WriteHeader(http.StatusOK)

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if r.Context().Err() != nil {
				// Caller disconnected; nobody is reading.
				h.logRequest(req, providerName, http.StatusOK, time.Since(start), true, nil, r.Context().Err())
				return
			}
			fmt.Fprintf(w, "data: {\"error\": {\"message\": %q, \"type\": \"upstream_error\"}}\n\n", err.Error())
			flusher.Flush()
			h.logRequest(req, providerName, http.StatusOK, time.Since(start), true, nil, err)
			return
		}

		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()

	h.logRequest(req, providerName, http.StatusOK, time.Since(start), true, nil, nil)
}

// Models handles GET /ai/v1/models.
func (h *ChatHandler) Models(w http.ResponseWriter, r *http.Request) {
	data := h.manager.Models()
	if data == nil {
		data = []providers.Model{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data":   data,
	})
}

// respondProviderError maps a provider failure onto a gateway status and
// writes the error envelope. It returns the status for logging.
func (h *ChatHandler) respondProviderError(w http.ResponseWriter, err error) int {
	var upstreamErr *providers.UpstreamError
	switch {
	case errors.Is(err, providers.ErrUnsupportedModel):
		respondError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return http.StatusBadRequest
	case errors.Is(err, providers.ErrProviderNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "gateway_error", err.Error())
		return http.StatusServiceUnavailable
	case errors.As(err, &upstreamErr):
		// Upstream status and body pass through unchanged.
		respondError(w, upstreamErr.StatusCode, "upstream_error", upstreamErr.Body)
		return upstreamErr.StatusCode
	default:
		log.Warn().Err(err).Msg("provider call failed")
		respondError(w, http.StatusBadGateway, "upstream_error", err.Error())
		return http.StatusBadGateway
	}
}

// logRequest writes one request-log row asynchronously.
func (h *ChatHandler) logRequest(req providers.ChatRequest, provider string, status int, latency time.Duration, streamed bool, usage *openai.Usage, callErr error) {
	if h.store == nil {
		return
	}

	entry := &models.RequestLog{
		ID:         uuid.NewString(),
		Method:     http.MethodPost,
		Route:      "/ai/v1/chat/completions",
		Model:      req.Model,
		Provider:   provider,
		StatusCode: status,
		LatencyMs:  int(latency.Milliseconds()),
		Streamed:   streamed,
		CreatedAt:  time.Now().UTC(),
	}
	if usage != nil {
		entry.PromptTokens = usage.PromptTokens
		entry.CompletionTokens = usage.CompletionTokens
		entry.TotalTokens = usage.TotalTokens
	}
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.LogRequest(ctx, entry); err != nil {
			log.Warn().Err(err).Msg("failed to log request")
		}
	}()
}
