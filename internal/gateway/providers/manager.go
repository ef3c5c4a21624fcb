package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedModel is returned for model names no rule accepts.
	ErrUnsupportedModel = errors.New("unsupported model")

	// ErrProviderNotConfigured is returned when the responsible provider has
	// no API key configured.
	ErrProviderNotConfigured = errors.New("provider not configured")
)

// routeRule pairs a model-name predicate with the provider that serves it.
// Rules are evaluated in order; the first match wins.
type routeRule struct {
	name     string
	match    func(model string) bool
	provider Provider
}

// Manager routes chat requests to a provider based on the model name.
// Routing is pure and stateless; the adapters stay ignorant of it.
type Manager struct {
	rules []routeRule
}

// NewManager builds the routing table. Either provider may be nil when its
// API key is not configured; requests routed to it fail with
// ErrProviderNotConfigured.
func NewManager(anthropic, openrouter Provider) *Manager {
	return &Manager{
		rules: []routeRule{
			{
				name:     "anthropic",
				match:    func(model string) bool { return strings.HasPrefix(model, "claude-") },
				provider: anthropic,
			},
			// Everything else goes through the OpenRouter marketplace, which
			// dispatches by vendor-prefixed model name. Unknown names are
			// passed through and rejected upstream; the gateway keeps no
			// model allow-list.
			{
				name:     "openrouter",
				match:    func(model string) bool { return true },
				provider: openrouter,
			},
		},
	}
}

// Route returns the provider responsible for the given model name.
func (m *Manager) Route(model string) (Provider, string, error) {
	if strings.TrimSpace(model) == "" {
		return nil, "", fmt.Errorf("%w: empty model name", ErrUnsupportedModel)
	}

	for _, rule := range m.rules {
		if !rule.match(model) {
			continue
		}
		if rule.provider == nil {
			return nil, rule.name, fmt.Errorf("%w: %s (check API key)", ErrProviderNotConfigured, rule.name)
		}
		return rule.provider, rule.name, nil
	}

	return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedModel, model)
}

// ChatCompletion routes and issues a whole-response completion. The second
// return value names the provider that served the request.
func (m *Manager) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, string, error) {
	provider, name, err := m.Route(req.Model)
	if err != nil {
		return nil, name, err
	}

	resp, err := provider.ChatCompletion(ctx, req)
	return resp, name, err
}

// ChatCompletionStream routes and opens a streaming completion.
func (m *Manager) ChatCompletionStream(ctx context.Context, req ChatRequest) (StreamReader, string, error) {
	provider, name, err := m.Route(req.Model)
	if err != nil {
		return nil, name, err
	}

	stream, err := provider.ChatCompletionStream(ctx, req)
	return stream, name, err
}

// Models returns the union of both providers' model lists.
func (m *Manager) Models() []Model {
	var out []Model
	for _, rule := range m.rules {
		if rule.provider != nil {
			out = append(out, rule.provider.Models()...)
		}
	}
	return out
}
