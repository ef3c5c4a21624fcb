package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"google.golang.org/api/tasks/v1"
)

// TasksHandler serves the Google Tasks routes.
type TasksHandler struct {
	google *GoogleClients
}

// NewTasksHandler creates the tasks handler.
func NewTasksHandler(google *GoogleClients) *TasksHandler {
	return &TasksHandler{google: google}
}

// TaskList is the trimmed task-list shape the gateway returns.
type TaskList struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Updated string `json:"updated,omitempty"`
}

// Task is the trimmed task shape the gateway returns.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Notes     string `json:"notes,omitempty"`
	Due       string `json:"due,omitempty"`
	Status    string `json:"status"`
	Completed string `json:"completed,omitempty"`
}

// Lists handles GET /tasks/lists.
func (h *TasksHandler) Lists(w http.ResponseWriter, r *http.Request) {
	var lists *tasks.TaskLists
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		lists, callErr = h.google.Tasks.Tasklists.List().MaxResults(100).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	out := make([]TaskList, 0, len(lists.Items))
	for _, item := range lists.Items {
		out = append(out, TaskList{ID: item.Id, Title: item.Title, Updated: item.Updated})
	}

	respondJSON(w, http.StatusOK, map[string]any{"lists": out})
}

// Tasks handles GET /tasks/lists/{listID}/tasks.
func (h *TasksHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "listID")
	showCompleted := r.URL.Query().Get("showCompleted") == "true"

	var items *tasks.Tasks
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		items, callErr = h.google.Tasks.Tasks.List(listID).
			ShowCompleted(showCompleted).
			MaxResults(100).
			Context(ctx).Do()
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	out := make([]Task, 0, len(items.Items))
	for _, item := range items.Items {
		out = append(out, convertTask(item))
	}

	respondJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

// taskRequest is the inbound shape for task creation and updates.
type taskRequest struct {
	Title  string `json:"title"`
	Notes  string `json:"notes"`
	Due    string `json:"due"`
	Status string `json:"status"`
}

// Create handles POST /tasks/lists/{listID}/tasks.
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "listID")

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "title is required")
		return
	}

	task := &tasks.Task{Title: req.Title, Notes: req.Notes, Due: req.Due}

	var created *tasks.Task
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		created, callErr = h.google.Tasks.Tasks.Insert(listID, task).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertTask(created))
}

// Update handles PATCH /tasks/lists/{listID}/tasks/{taskID}.
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "listID")
	taskID := chi.URLParam(r, "taskID")

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}

	patch := &tasks.Task{Title: req.Title, Notes: req.Notes, Due: req.Due, Status: req.Status}

	var updated *tasks.Task
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		updated, callErr = h.google.Tasks.Tasks.Patch(listID, taskID, patch).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertTask(updated))
}

// Delete handles DELETE /tasks/lists/{listID}/tasks/{taskID}.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "listID")
	taskID := chi.URLParam(r, "taskID")

	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		return h.google.Tasks.Tasks.Delete(listID, taskID).Context(ctx).Do()
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func convertTask(item *tasks.Task) Task {
	out := Task{
		ID:     item.Id,
		Title:  item.Title,
		Notes:  item.Notes,
		Due:    item.Due,
		Status: item.Status,
	}
	if item.Completed != nil {
		out.Completed = *item.Completed
	}
	return out
}
