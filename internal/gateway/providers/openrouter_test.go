package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOpenRouterModel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"openai/gpt-4o", "openai/gpt-4o"},
		{"gpt-4o", "openai/gpt-4o"},
		{"gpt-4o-mini", "openai/gpt-4o-mini"},
		{"o1-preview", "openai/o1-preview"},
		{"o3-mini", "openai/o3-mini"},
		{"deepseek-chat", "deepseek/deepseek-chat"},
		{"mistral-large-latest", "mistralai/mistral-large-latest"},
		{"gemini-2.0-flash", "google/gemini-2.0-flash"},
		{"llama-3.3-70b", "meta-llama/llama-3.3-70b"},
		{"meta-llama/llama-3.3-70b", "meta-llama/llama-3.3-70b"},
		{"some-unknown-model", "some-unknown-model"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeOpenRouterModel(tt.in))
		})
	}
}

func TestOpenRouterChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("HTTP-Referer"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "openai/gpt-4o", req.Model, "bare name normalized before dispatch")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "gen-123",
			"object": "chat.completion",
			"model": "openai/gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
		}`)
	}))
	defer srv.Close()

	p := NewOpenRouterProviderWithBaseURL("test-key", srv.URL)
	resp, err := p.ChatCompletion(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: []openai.ChatCompletionMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "gen-123", resp.ID)
	assert.Equal(t, 4, resp.Usage.TotalTokens)
}

func TestOpenRouterUpstreamErrorPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited", "type": "rate_limit_error"}}`)
	}))
	defer srv.Close()

	p := NewOpenRouterProviderWithBaseURL("test-key", srv.URL)
	_, err := p.ChatCompletion(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: []openai.ChatCompletionMessage{{Role: "user", Content: "hi"}},
	})

	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, http.StatusTooManyRequests, uerr.StatusCode)
	assert.Equal(t, "openrouter", uerr.Provider)
	assert.Contains(t, uerr.Body, "rate limited")
}
