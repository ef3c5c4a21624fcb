// Package store persists the gateway request log in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rbent/api-gateway/internal/shared/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS request_log (
	id TEXT PRIMARY KEY,
	method TEXT NOT NULL,
	route TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL DEFAULT '',
	status_code INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	streamed INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_request_log_created_at ON request_log(created_at);
`

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path and applies the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite handles one writer at a time; serialize access in the pool.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LogRequest inserts one request log row.
func (s *Store) LogRequest(ctx context.Context, entry *models.RequestLog) error {
	query := `
		INSERT INTO request_log (
			id, method, route, model, provider, status_code, latency_ms,
			prompt_tokens, completion_tokens, total_tokens, streamed,
			error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Method,
		entry.Route,
		entry.Model,
		entry.Provider,
		entry.StatusCode,
		entry.LatencyMs,
		entry.PromptTokens,
		entry.CompletionTokens,
		entry.TotalTokens,
		entry.Streamed,
		entry.ErrorMessage,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

// RecentRequests returns the most recent request log rows, newest first.
func (s *Store) RecentRequests(ctx context.Context, limit int) ([]models.RequestLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, method, route, model, provider, status_code, latency_ms,
		       prompt_tokens, completion_tokens, total_tokens, streamed,
		       error_message, created_at
		FROM request_log
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query request log: %w", err)
	}
	defer rows.Close()

	var out []models.RequestLog
	for rows.Next() {
		var entry models.RequestLog
		if err := rows.Scan(
			&entry.ID,
			&entry.Method,
			&entry.Route,
			&entry.Model,
			&entry.Provider,
			&entry.StatusCode,
			&entry.LatencyMs,
			&entry.PromptTokens,
			&entry.CompletionTokens,
			&entry.TotalTokens,
			&entry.Streamed,
			&entry.ErrorMessage,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan request log: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
