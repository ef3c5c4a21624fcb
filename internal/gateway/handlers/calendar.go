package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/calendar/v3"
)

// CalendarHandler serves the Google Calendar routes (primary calendar).
type CalendarHandler struct {
	google *GoogleClients
}

// NewCalendarHandler creates the calendar handler.
func NewCalendarHandler(google *GoogleClients) *CalendarHandler {
	return &CalendarHandler{google: google}
}

// Event is the trimmed event shape the gateway returns.
type Event struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Status      string `json:"status,omitempty"`
	HTMLLink    string `json:"html_link,omitempty"`
}

// Events handles GET /calendar/events.
func (h *CalendarHandler) Events(w http.ResponseWriter, r *http.Request) {
	maxResults := int64(10)
	if v, err := strconv.ParseInt(r.URL.Query().Get("maxResults"), 10, 64); err == nil && v > 0 {
		maxResults = v
	}

	call := h.google.Calendar.Events.List("primary").
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxResults)

	if timeMin := r.URL.Query().Get("timeMin"); timeMin != "" {
		call = call.TimeMin(timeMin)
	} else {
		call = call.TimeMin(time.Now().Format(time.RFC3339))
	}
	if timeMax := r.URL.Query().Get("timeMax"); timeMax != "" {
		call = call.TimeMax(timeMax)
	}

	h.listEvents(w, r, call)
}

// Today handles GET /calendar/today.
func (h *CalendarHandler) Today(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	call := h.google.Calendar.Events.List("primary").
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339))

	h.listEvents(w, r, call)
}

func (h *CalendarHandler) listEvents(w http.ResponseWriter, r *http.Request, call *calendar.EventsListCall) {
	var events *calendar.Events
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		events, callErr = call.Context(ctx).Do()
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	out := make([]Event, 0, len(events.Items))
	for _, item := range events.Items {
		out = append(out, convertEvent(item))
	}

	respondJSON(w, http.StatusOK, map[string]any{"events": out})
}

// createEventRequest is the inbound shape for POST /calendar/events.
type createEventRequest struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// CreateEvent handles POST /calendar/events.
func (h *CalendarHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}
	if req.Summary == "" || req.Start == "" || req.End == "" {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "summary, start, and end are required")
		return
	}

	event := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		Start:       &calendar.EventDateTime{DateTime: req.Start},
		End:         &calendar.EventDateTime{DateTime: req.End},
	}

	var created *calendar.Event
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		created, callErr = h.google.Calendar.Events.Insert("primary", event).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertEvent(created))
}

func convertEvent(item *calendar.Event) Event {
	out := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Status:      item.Status,
		HTMLLink:    item.HtmlLink,
	}
	if item.Start != nil {
		out.Start = item.Start.DateTime
		if out.Start == "" {
			out.Start = item.Start.Date
		}
	}
	if item.End != nil {
		out.End = item.End.DateTime
		if out.End == "" {
			out.End = item.End.Date
		}
	}
	return out
}
