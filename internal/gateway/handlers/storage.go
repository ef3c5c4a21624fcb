package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/drive/v3"
)

// StorageHandler serves the Google Drive routes.
type StorageHandler struct {
	google *GoogleClients
}

// NewStorageHandler creates the storage handler.
func NewStorageHandler(google *GoogleClients) *StorageHandler {
	return &StorageHandler{google: google}
}

// File is the trimmed file shape the gateway returns.
type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size,omitempty"`
	ModifiedTime string `json:"modified_time,omitempty"`
	WebViewLink  string `json:"web_view_link,omitempty"`
}

// Files handles GET /storage/files.
func (h *StorageHandler) Files(w http.ResponseWriter, r *http.Request) {
	pageSize := int64(20)
	if v, err := strconv.ParseInt(r.URL.Query().Get("pageSize"), 10, 64); err == nil && v > 0 && v <= 100 {
		pageSize = v
	}

	// Trashed files are always excluded; extra clauses are ANDed in.
	query := "trashed = false"
	if folderID := r.URL.Query().Get("folder_id"); folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", driveQueryEscape(folderID))
	}
	if name := r.URL.Query().Get("q"); name != "" {
		query += fmt.Sprintf(" and name contains '%s'", driveQueryEscape(name))
	}

	var list *drive.FileList
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		list, callErr = h.google.Drive.Files.List().
			Q(query).
			PageSize(pageSize).
			OrderBy("modifiedTime desc").
			Fields("files(id, name, mimeType, size, modifiedTime, webViewLink)").
			Context(ctx).Do()
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	out := make([]File, 0, len(list.Files))
	for _, item := range list.Files {
		out = append(out, convertFile(item))
	}

	respondJSON(w, http.StatusOK, map[string]any{"files": out})
}

// File handles GET /storage/files/{fileID}.
func (h *StorageHandler) File(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	var file *drive.File
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		file, callErr = h.google.Drive.Files.Get(fileID).
			Fields("id, name, mimeType, size, modifiedTime, webViewLink").
			Context(ctx).Do()
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertFile(file))
}

// Download handles GET /storage/files/{fileID}/download. The file content
// streams through without buffering.
func (h *StorageHandler) Download(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	var resp *http.Response
	err := h.google.Auth.Do(r.Context(), func(ctx context.Context) error {
		var callErr error
		resp, callErr = h.google.Drive.Files.Get(fileID).Context(ctx).Download()
		return callErr
	})
	if err != nil {
		respondGoogleError(w, err)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("download interrupted")
	}
}

// driveQueryEscape escapes a value for a single-quoted Drive query literal so
// caller input cannot break out of the clause.
func driveQueryEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func convertFile(item *drive.File) File {
	return File{
		ID:           item.Id,
		Name:         item.Name,
		MimeType:     item.MimeType,
		Size:         item.Size,
		ModifiedTime: item.ModifiedTime,
		WebViewLink:  item.WebViewLink,
	}
}
