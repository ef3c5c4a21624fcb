package models

import "time"

// RequestLog is one row in the gateway request log.
type RequestLog struct {
	ID               string    `json:"id"`
	Method           string    `json:"method"`
	Route            string    `json:"route"`
	Model            string    `json:"model,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	StatusCode       int       `json:"status_code"`
	LatencyMs        int       `json:"latency_ms"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Streamed         bool      `json:"streamed"`
	ErrorMessage     *string   `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// IntegrationStatus reports whether an upstream integration is usable.
type IntegrationStatus struct {
	Connected bool   `json:"connected"`
	Status    string `json:"status"`
	LastCheck string `json:"last_check,omitempty"`
}
