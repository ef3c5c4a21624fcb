package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// vendorPrefixes maps bare model-name prefixes to the OpenRouter vendor
// namespace. Names that already carry a vendor segment pass through as-is.
var vendorPrefixes = []struct {
	match  string
	vendor string
}{
	{"gpt-", "openai/"},
	{"o1-", "openai/"},
	{"o3-", "openai/"},
	{"deepseek-", "deepseek/"},
	{"mistral-", "mistralai/"},
	{"gemini-", "google/"},
	{"llama-", "meta-llama/"},
}

// OpenRouterProvider reaches the fallback marketplace through its
// OpenAI-compatible API.
type OpenRouterProvider struct {
	client *openai.Client
}

// NewOpenRouterProvider creates the fallback provider adapter.
func NewOpenRouterProvider(apiKey string) *OpenRouterProvider {
	return NewOpenRouterProviderWithBaseURL(apiKey, openRouterBaseURL)
}

// NewOpenRouterProviderWithBaseURL creates the adapter against a custom base
// URL. Used by tests.
func NewOpenRouterProviderWithBaseURL(apiKey, baseURL string) *OpenRouterProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{
		Timeout:   60 * time.Second,
		Transport: &attributionTransport{base: http.DefaultTransport},
	}
	return &OpenRouterProvider{client: openai.NewClientWithConfig(cfg)}
}

// attributionTransport adds the app-attribution headers OpenRouter expects.
type attributionTransport struct {
	base http.RoundTripper
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("HTTP-Referer", "https://api-gateway.local")
	req.Header.Set("X-Title", "API Gateway")
	return t.base.RoundTrip(req)
}

// ChatCompletion makes a whole-response request to OpenRouter.
func (p *OpenRouterProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.convertRequest(req, false))
	if err != nil {
		return nil, p.wrapError(err)
	}

	return &ChatResponse{
		ID:      resp.ID,
		Object:  resp.Object,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: resp.Choices,
		Usage:   resp.Usage,
	}, nil
}

// ChatCompletionStream opens a streaming request to OpenRouter.
func (p *OpenRouterProvider) ChatCompletionStream(ctx context.Context, req ChatRequest) (StreamReader, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, p.convertRequest(req, true))
	if err != nil {
		return nil, p.wrapError(err)
	}
	return &openRouterStreamReader{stream: stream}, nil
}

// openRouterStreamReader wraps the go-openai stream.
type openRouterStreamReader struct {
	stream *openai.ChatCompletionStream
}

func (r *openRouterStreamReader) Recv() (openai.ChatCompletionStreamResponse, error) {
	return r.stream.Recv()
}

func (r *openRouterStreamReader) Close() error {
	return r.stream.Close()
}

func (p *OpenRouterProvider) convertRequest(req ChatRequest, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:    NormalizeOpenRouterModel(req.Model),
		Messages: req.Messages,
		Stream:   stream,
	}

	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		out.TopP = *req.TopP
	}

	return out
}

// wrapError maps a go-openai API error onto UpstreamError so the gateway can
// pass the upstream status through.
func (p *OpenRouterProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{
			Provider:   "openrouter",
			StatusCode: apiErr.HTTPStatusCode,
			Body:       apiErr.Message,
		}
	}
	return fmt.Errorf("openrouter request failed: %w", err)
}

// NormalizeOpenRouterModel ensures a model name carries a vendor segment.
// Bare names with a known prefix get one; anything else passes through
// unmodified and is accepted or rejected upstream.
func NormalizeOpenRouterModel(model string) string {
	if strings.Contains(model, "/") {
		return model
	}
	for _, vp := range vendorPrefixes {
		if strings.HasPrefix(model, vp.match) {
			return vp.vendor + model
		}
	}
	return model
}

// Models lists the advertised marketplace models.
func (p *OpenRouterProvider) Models() []Model {
	return []Model{
		{ID: "openai/gpt-4o", Object: "model", OwnedBy: "openai"},
		{ID: "openai/gpt-4o-mini", Object: "model", OwnedBy: "openai"},
		{ID: "deepseek/deepseek-chat", Object: "model", OwnedBy: "deepseek"},
	}
}

// Name returns the provider name.
func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}
