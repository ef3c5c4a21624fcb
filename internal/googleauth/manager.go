// Package googleauth manages the gateway's single Google identity: one
// cached OAuth access token, refreshed from a long-lived refresh token.
//
// The Manager implements oauth2.TokenSource, so the generated Google API
// clients pull tokens straight from the cache. Handlers wrap their upstream
// calls in Do, which retries exactly once after an upstream 401.
package googleauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
)

// expirySkew treats tokens as expired slightly early so an in-flight
// upstream call does not race the real expiry.
const expirySkew = 60 * time.Second

// refreshTimeout bounds a single token-endpoint exchange.
const refreshTimeout = 30 * time.Second

var (
	// ErrNotConfigured is returned when no Google refresh token is set.
	ErrNotConfigured = errors.New("google refresh token not configured")

	// ErrUpstreamAuth is returned when a Google call still answers 401
	// after a forced token refresh.
	ErrUpstreamAuth = errors.New("google rejected credentials after refresh")
)

// Manager caches the access token for the configured Google identity.
type Manager struct {
	conf         *oauth2.Config
	refreshToken string

	mu  sync.Mutex
	tok *oauth2.Token

	now        func() time.Time
	httpClient *http.Client
}

// Option customizes a Manager. Used by tests to substitute the token
// endpoint, HTTP client, and clock.
type Option func(*Manager)

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(url string) Option {
	return func(m *Manager) { m.conf.Endpoint = oauth2.Endpoint{TokenURL: url} }
}

// WithHTTPClient overrides the HTTP client used for the refresh exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager for the given OAuth client and refresh token.
func New(clientID, clientSecret, refreshToken string, opts ...Option) *Manager {
	m := &Manager{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		},
		refreshToken: refreshToken,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configured reports whether a refresh token is available.
func (m *Manager) Configured() bool {
	return m.refreshToken != ""
}

// Token implements oauth2.TokenSource. The generated Google API clients call
// it once per outbound request.
func (m *Manager) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	return m.token(ctx)
}

// AccessToken returns a usable bearer token, refreshing first if needed.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	tok, err := m.token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// token returns the cached token, refreshing it when absent or past its
// skewed expiry. The lock is held across check, refresh, and store, so
// concurrent callers share a single in-flight refresh.
func (m *Manager) token(ctx context.Context) (*oauth2.Token, error) {
	if !m.Configured() {
		return nil, ErrNotConfigured
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tok != nil && m.tok.AccessToken != "" && m.now().Before(m.tok.Expiry.Add(-expirySkew)) {
		return m.tok, nil
	}

	tok, err := m.refresh(ctx)
	if err != nil {
		// Never keep a token from a failed exchange.
		m.tok = nil
		return nil, err
	}

	m.tok = tok
	return tok, nil
}

// refresh performs the refresh-token exchange against the token endpoint.
func (m *Manager) refresh(ctx context.Context) (*oauth2.Token, error) {
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	ts := m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: m.refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh google access token: %w", err)
	}
	return tok, nil
}

// Invalidate drops the cached token so the next caller refreshes.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.tok = nil
	m.mu.Unlock()
}

// Do invokes call and, when the upstream answers 401, invalidates the cached
// token, refreshes, and retries exactly once. A second 401 surfaces as
// ErrUpstreamAuth; every other failure propagates unchanged.
func (m *Manager) Do(ctx context.Context, call func(ctx context.Context) error) error {
	err := call(ctx)
	if !isUnauthorized(err) {
		return err
	}

	m.Invalidate()
	if _, rerr := m.token(ctx); rerr != nil {
		return rerr
	}

	err = call(ctx)
	if isUnauthorized(err) {
		return fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	return err
}

// isUnauthorized reports whether err is an HTTP 401 from a Google API call.
func isUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized
}
