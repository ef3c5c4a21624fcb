package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"

	// Anthropic requires max_tokens; this is the default when the caller
	// omits it.
	anthropicDefaultMaxTokens = 1024
)

// claudeModels are the models the gateway advertises for the native provider.
var claudeModels = []string{
	"claude-opus-4-5-20251101",
	"claude-sonnet-4-5-20250929",
	"claude-haiku-4-5-20251001",
}

// AnthropicProvider calls the Anthropic Messages API directly and translates
// to and from the gateway's normalized shape.
type AnthropicProvider struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// anthropicRequest is the Messages API request body.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the Messages API response body.
type anthropicResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicProvider creates the native provider adapter.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey: apiKey,
		apiURL: anthropicAPIURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ChatCompletion makes a whole-response request to the Messages API.
func (p *AnthropicProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(p.convertRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("encode anthropic request: %w", err)
	}

	httpResp, err := p.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read anthropic response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Provider: "anthropic", StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse anthropic response: %w", err)
	}

	return p.convertResponse(req.Model, resp), nil
}

// ChatCompletionStream opens a streaming request to the Messages API.
func (p *AnthropicProvider) ChatCompletionStream(ctx context.Context, req ChatRequest) (StreamReader, error) {
	body, err := json.Marshal(p.convertRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("encode anthropic request: %w", err)
	}

	httpResp, err := p.post(ctx, body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, &UpstreamError{Provider: "anthropic", StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	return &anthropicStreamReader{
		id:      completionID(),
		created: time.Now().Unix(),
		model:   req.Model,
		reader:  bufio.NewReader(httpResp.Body),
		resp:    httpResp,
	}, nil
}

func (p *AnthropicProvider) post(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	return httpResp, nil
}

// anthropicStreamReader translates the Messages API SSE stream into
// OpenAI-style stream chunks, one transport frame at a time.
type anthropicStreamReader struct {
	id      string
	created int64
	model   string
	reader  *bufio.Reader
	resp    *http.Response
	done    bool
}

// Recv returns the next chunk. After the message_stop event it emits one
// final chunk with a finish reason, then io.EOF.
func (r *anthropicStreamReader) Recv() (openai.ChatCompletionStreamResponse, error) {
	if r.done {
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}

	for {
		line, err := r.reader.ReadString('\n')
		if err != nil {
			// A raw EOF before message_stop means the upstream dropped the
			// connection; never let it read as a normal end of stream.
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return openai.ChatCompletionStreamResponse{}, err
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || !gjson.Valid(data) {
			continue
		}

		switch gjson.Get(data, "type").String() {
		case "content_block_delta":
			text := gjson.Get(data, "delta.text").String()
			if text == "" {
				continue
			}
			return r.chunk(openai.ChatCompletionStreamChoiceDelta{Content: text}, ""), nil
		case "message_start":
			return r.chunk(openai.ChatCompletionStreamChoiceDelta{Role: "assistant"}, ""), nil
		case "message_stop":
			r.done = true
			return r.chunk(openai.ChatCompletionStreamChoiceDelta{}, "stop"), nil
		}
	}
}

func (r *anthropicStreamReader) chunk(delta openai.ChatCompletionStreamChoiceDelta, finish string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		ID:      r.id,
		Object:  "chat.completion.chunk",
		Created: r.created,
		Model:   r.model,
		Choices: []openai.ChatCompletionStreamChoice{
			{
				Index:        0,
				Delta:        delta,
				FinishReason: openai.FinishReason(finish),
			},
		},
	}
}

// Close releases the upstream connection. Safe to call mid-stream.
func (r *anthropicStreamReader) Close() error {
	if r.resp != nil && r.resp.Body != nil {
		return r.resp.Body.Close()
	}
	return nil
}

// convertRequest translates the normalized request into the Messages API
// shape. System messages move to the top-level system field.
func (p *AnthropicProvider) convertRequest(req ChatRequest, stream bool) anthropicRequest {
	out := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   anthropicDefaultMaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}

	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		out.MaxTokens = *req.MaxTokens
	}

	for _, msg := range req.Messages {
		if msg.Role == "system" {
			out.System = msg.Content
			continue
		}
		role := msg.Role
		if role != "user" && role != "assistant" {
			role = "user"
		}
		out.Messages = append(out.Messages, anthropicMessage{Role: role, Content: msg.Content})
	}

	return out
}

// convertResponse translates a Messages API response into the normalized
// shape.
func (p *AnthropicProvider) convertResponse(model string, resp anthropicResponse) *ChatResponse {
	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	finish := resp.StopReason
	if finish == "" || finish == "end_turn" {
		finish = "stop"
	}

	id := resp.ID
	if id == "" {
		id = completionID()
	}

	return &ChatResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.ChatCompletionChoice{
			{
				Index: 0,
				Message: openai.ChatCompletionMessage{
					Role:    "assistant",
					Content: content.String(),
				},
				FinishReason: openai.FinishReason(finish),
			},
		},
		Usage: openai.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}

// Models lists the advertised native models.
func (p *AnthropicProvider) Models() []Model {
	out := make([]Model, 0, len(claudeModels))
	for _, id := range claudeModels {
		out = append(out, Model{ID: id, Object: "model", OwnedBy: "anthropic"})
	}
	return out
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func completionID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
