package providers

import (
	"context"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider answers every call with canned values.
type stubProvider struct {
	name   string
	models []Model
	resp   *ChatResponse
	err    error
}

func (s *stubProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return s.resp, s.err
}

func (s *stubProvider) ChatCompletionStream(ctx context.Context, req ChatRequest) (StreamReader, error) {
	return nil, s.err
}

func (s *stubProvider) Models() []Model { return s.models }
func (s *stubProvider) Name() string    { return s.name }

func TestRouteByModelName(t *testing.T) {
	anthropic := &stubProvider{name: "anthropic"}
	openrouter := &stubProvider{name: "openrouter"}
	m := NewManager(anthropic, openrouter)

	tests := []struct {
		model string
		want  string
	}{
		{"claude-haiku-4-5-20251001", "anthropic"},
		{"claude-3-haiku-20240307", "anthropic"},
		{"openai/gpt-4o", "openrouter"},
		{"gpt-4o-mini", "openrouter"},
		{"deepseek/deepseek-chat", "openrouter"},
		{"some-unknown-model", "openrouter"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			provider, name, err := m.Route(tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.want, name)
			assert.Equal(t, tt.want, provider.Name())
		})
	}
}

func TestRouteEmptyModelRejected(t *testing.T) {
	m := NewManager(&stubProvider{name: "anthropic"}, &stubProvider{name: "openrouter"})

	_, _, err := m.Route("")
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	_, _, err = m.Route("   ")
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestRouteNilProviderNotConfigured(t *testing.T) {
	m := NewManager(nil, &stubProvider{name: "openrouter"})

	_, name, err := m.Route("claude-haiku-4-5-20251001")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
	assert.Equal(t, "anthropic", name)

	// The other rule still routes.
	provider, _, err := m.Route("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", provider.Name())
}

func TestChatCompletionReportsProviderName(t *testing.T) {
	anthropic := &stubProvider{
		name: "anthropic",
		resp: &ChatResponse{
			ID:    "chatcmpl-abc",
			Model: "claude-haiku-4-5-20251001",
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "hi"}},
			},
		},
	}
	m := NewManager(anthropic, &stubProvider{name: "openrouter"})

	resp, name, err := m.ChatCompletion(context.Background(), ChatRequest{Model: "claude-haiku-4-5-20251001"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", name)
	assert.Equal(t, "chatcmpl-abc", resp.ID)
}

func TestModelsAggregatesBothProviders(t *testing.T) {
	anthropic := &stubProvider{name: "anthropic", models: []Model{{ID: "claude-haiku-4-5-20251001"}}}
	openrouter := &stubProvider{name: "openrouter", models: []Model{{ID: "openai/gpt-4o"}, {ID: "deepseek/deepseek-chat"}}}

	m := NewManager(anthropic, openrouter)
	models := m.Models()
	require.Len(t, models, 3)
	assert.Equal(t, "claude-haiku-4-5-20251001", models[0].ID)

	// A nil provider contributes nothing.
	m = NewManager(anthropic, nil)
	assert.Len(t, m.Models(), 1)
}
