package store

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbent/api-gateway/internal/shared/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "gateway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLogAndReadBack(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	errMsg := "upstream timed out"
	entries := []*models.RequestLog{
		{
			ID:               uuid.NewString(),
			Method:           http.MethodPost,
			Route:            "/ai/v1/chat/completions",
			Model:            "claude-haiku-4-5-20251001",
			Provider:         "anthropic",
			StatusCode:       http.StatusOK,
			LatencyMs:        850,
			PromptTokens:     12,
			CompletionTokens: 40,
			TotalTokens:      52,
			CreatedAt:        time.Now().Add(-time.Minute),
		},
		{
			ID:           uuid.NewString(),
			Method:       http.MethodPost,
			Route:        "/ai/v1/chat/completions",
			Model:        "openai/gpt-4o",
			Provider:     "openrouter",
			StatusCode:   http.StatusBadGateway,
			LatencyMs:    60000,
			Streamed:     true,
			ErrorMessage: &errMsg,
			CreatedAt:    time.Now(),
		},
	}
	for _, e := range entries {
		require.NoError(t, st.LogRequest(ctx, e))
	}

	rows, err := st.RecentRequests(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Newest first.
	assert.Equal(t, entries[1].ID, rows[0].ID)
	assert.Equal(t, "openrouter", rows[0].Provider)
	assert.True(t, rows[0].Streamed)
	require.NotNil(t, rows[0].ErrorMessage)
	assert.Equal(t, errMsg, *rows[0].ErrorMessage)

	assert.Equal(t, entries[0].ID, rows[1].ID)
	assert.Equal(t, 52, rows[1].TotalTokens)
	assert.Nil(t, rows[1].ErrorMessage)
}

func TestRecentRequestsLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, st.LogRequest(ctx, &models.RequestLog{
			ID:         uuid.NewString(),
			Method:     http.MethodPost,
			Route:      "/ai/v1/chat/completions",
			StatusCode: http.StatusOK,
			CreatedAt:  time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	rows, err := st.RecentRequests(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestPing(t *testing.T) {
	st := newTestStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}
