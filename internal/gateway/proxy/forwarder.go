// Package proxy forwards requests to the internal knowledge-base service.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured means no KB base URL is set; checked before any
	// network attempt.
	ErrNotConfigured = errors.New("kb service not configured")

	// ErrTimeout means the upstream did not answer within the deadline.
	ErrTimeout = errors.New("kb service timed out")

	// ErrUnreachable covers every other transport failure (connection
	// refused, DNS failure).
	ErrUnreachable = errors.New("kb service unreachable")
)

// Response is the upstream's answer, passed through unchanged.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Forwarder relays requests to the KB service verbatim, swapping the
// gateway's inbound credential for the KB service's own key. It performs no
// retries and no response transformation.
type Forwarder struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// New creates a Forwarder. baseURL may be empty, in which case every forward
// fails with ErrNotConfigured.
func New(baseURL, apiKey string, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Forwarder{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{},
	}
}

// Configured reports whether a KB base URL is set.
func (f *Forwarder) Configured() bool {
	return f.baseURL != ""
}

// Forward relays one request to <base>/v1<path>. rawQuery is appended
// byte-for-byte so repeated keys keep their values and order.
func (f *Forwarder) Forward(ctx context.Context, method, path, rawQuery, contentType string, body io.Reader) (*Response, error) {
	if !f.Configured() {
		return nil, ErrNotConfigured
	}

	url := f.baseURL + "/v1" + path
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build kb request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("X-API-Key", f.apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	contentTypeOut := resp.Header.Get("Content-Type")
	if contentTypeOut == "" {
		contentTypeOut = "application/json"
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: contentTypeOut,
		Body:        respBody,
	}, nil
}

// classifyTransportError maps a transport failure onto the gateway's
// three-way taxonomy.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
