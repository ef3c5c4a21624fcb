package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"google.golang.org/api/gmail/v1"
)

func encodeBody(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func TestExtractPlainText(t *testing.T) {
	t.Run("plain body at top level", func(t *testing.T) {
		payload := &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: encodeBody("hello")},
		}
		assert.Equal(t, "hello", extractPlainText(payload))
	})

	t.Run("multipart picks the text part", func(t *testing.T) {
		payload := &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encodeBody("<b>hi</b>")}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encodeBody("hi")}},
			},
		}
		assert.Equal(t, "<b>hi</b>", extractPlainText(payload.Parts[0]))
		assert.Equal(t, "hi", extractPlainText(payload))
	})

	t.Run("nested multipart", func(t *testing.T) {
		payload := &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encodeBody("deep")}},
					},
				},
			},
		}
		assert.Equal(t, "deep", extractPlainText(payload))
	})

	t.Run("no text anywhere", func(t *testing.T) {
		payload := &gmail.MessagePart{MimeType: "image/png", Body: &gmail.MessagePartBody{}}
		assert.Equal(t, "", extractPlainText(payload))
	})
}

func TestEmailUnread(t *testing.T) {
	var refreshes atomic.Int32
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/gmail/v1/users/me/labels/UNREAD":
			fmt.Fprint(w, `{"id": "UNREAD", "messagesUnread": 3}`)
		case r.URL.Path == "/gmail/v1/users/me/messages":
			assert.Equal(t, "is:unread", r.URL.Query().Get("q"))
			fmt.Fprint(w, `{"messages": [{"id": "m1", "threadId": "t1"}]}`)
		case r.URL.Path == "/gmail/v1/users/me/messages/m1":
			fmt.Fprint(w, `{"id": "m1", "threadId": "t1", "snippet": "Quick question",
				"payload": {"headers": [
					{"name": "Subject", "value": "Question"},
					{"name": "From", "value": "a@example.com"},
					{"name": "Date", "value": "Sun, 23 Aug 2026 10:00:00 +0200"}
				]}}`)
		default:
			http.NotFound(w, r)
		}
	})

	h := NewEmailHandler(newTestGoogleClients(t, &refreshes, api))

	req := httptest.NewRequest(http.MethodGet, "/email/unread", nil)
	rec := httptest.NewRecorder()
	h.Unread(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, int64(3), gjson.Get(body, "unread_count").Int())
	assert.Equal(t, "Question", gjson.Get(body, "messages.0.subject").String())
	assert.Equal(t, "a@example.com", gjson.Get(body, "messages.0.from").String())
}
