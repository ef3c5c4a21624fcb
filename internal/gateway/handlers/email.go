package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"google.golang.org/api/gmail/v1"
)

// EmailHandler serves the Gmail routes. The gateway holds a read-only Gmail
// scope, so this surface is read-only.
type EmailHandler struct {
	google *GoogleClients
}

// NewEmailHandler creates the email handler.
func NewEmailHandler(google *GoogleClients) *EmailHandler {
	return &EmailHandler{google: google}
}

// MessageSummary is the trimmed message shape returned by list endpoints.
type MessageSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Date     string `json:"date"`
	Snippet  string `json:"snippet"`
}

// Message adds the decoded plain-text body for single-message reads.
type Message struct {
	MessageSummary
	Body string `json:"body"`
}

// Unread handles GET /email/unread.
func (h *EmailHandler) Unread(w http.ResponseWriter, r *http.Request) {
	var label *gmail.Label
	var summaries []MessageSummary

	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		label, callErr = h.google.Gmail.Users.Labels.Get("me", "UNREAD").Context(ctx).Do()
		if callErr != nil {
			return callErr
		}
		summaries, callErr = h.listSummaries(ctx, "is:unread", 10)
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"unread_count": label.MessagesUnread,
		"messages":     summaries,
	})
}

// Messages handles GET /email/messages.
func (h *EmailHandler) Messages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	maxResults := int64(10)
	if v, err := strconv.ParseInt(r.URL.Query().Get("maxResults"), 10, 64); err == nil && v > 0 && v <= 50 {
		maxResults = v
	}

	var summaries []MessageSummary
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		summaries, callErr = h.listSummaries(ctx, query, maxResults)
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"messages": summaries})
}

// Message handles GET /email/messages/{messageID}.
func (h *EmailHandler) Message(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")

	var msg *gmail.Message
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		msg, callErr = h.google.Gmail.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	out := Message{MessageSummary: summarize(msg)}
	if msg.Payload != nil {
		out.Body = extractPlainText(msg.Payload)
	}

	respondJSON(w, http.StatusOK, out)
}

// listSummaries lists message ids matching query, then fetches metadata for
// each. A 401 anywhere aborts the whole batch, so the retry wrapper replays
// it with a fresh token.
func (h *EmailHandler) listSummaries(ctx context.Context, query string, maxResults int64) ([]MessageSummary, error) {
	call := h.google.Gmail.Users.Messages.List("me").MaxResults(maxResults)
	if query != "" {
		call = call.Q(query)
	}

	list, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	summaries := make([]MessageSummary, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := h.google.Gmail.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(msg))
	}
	return summaries, nil
}

func summarize(msg *gmail.Message) MessageSummary {
	out := MessageSummary{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}
	if msg.Payload == nil {
		return out
	}
	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Subject":
			out.Subject = header.Value
		case "From":
			out.From = header.Value
		case "Date":
			out.Date = header.Value
		}
	}
	return out
}

// extractPlainText walks the MIME tree and returns the first text/plain
// part, falling back to the top-level body.
func extractPlainText(payload *gmail.MessagePart) string {
	if strings.HasPrefix(payload.MimeType, "text/plain") && payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}
	for _, part := range payload.Parts {
		if text := extractPlainText(part); text != "" {
			return text
		}
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(data)
	if err != nil {
		return ""
	}
	return string(decoded)
}
