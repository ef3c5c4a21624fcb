package providers

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ChatRequest represents a chat completion request in the gateway's
// normalized (OpenAI-compatible) shape.
type ChatRequest struct {
	Model       string                         `json:"model"`
	Messages    []openai.ChatCompletionMessage `json:"messages"`
	Temperature *float32                       `json:"temperature,omitempty"`
	MaxTokens   *int                           `json:"max_tokens,omitempty"`
	TopP        *float32                       `json:"top_p,omitempty"`
	Stream      bool                           `json:"stream,omitempty"`
}

// ChatResponse represents a chat completion response in the normalized shape.
type ChatResponse struct {
	ID      string                        `json:"id"`
	Object  string                        `json:"object"`
	Created int64                         `json:"created"`
	Model   string                        `json:"model"`
	Choices []openai.ChatCompletionChoice `json:"choices"`
	Usage   openai.Usage                  `json:"usage"`
}

// Model describes one model a provider can serve.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// StreamReader is a pull-based reader over a streaming completion. Recv
// returns io.EOF after the final chunk; Close releases the upstream
// connection and is safe to call mid-stream.
type StreamReader interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// Provider is the interface both LLM backends implement.
type Provider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	ChatCompletionStream(ctx context.Context, req ChatRequest) (StreamReader, error)
	Models() []Model
	Name() string
}

// UpstreamError carries an upstream provider's HTTP status and body through
// to the gateway response unchanged.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}
