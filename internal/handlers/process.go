package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakthis4/Alt-Text/internal/pipeline"
)

// HandleProcess accepts one submission: multipart file uploads (one
// document OR one or more images) or a JSON body with an image URL.
// Processing runs in the background; results surface incrementally
// through the items endpoint.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLSubmission(w, r)
		return
	}
	h.handleFileSubmission(w, r)
}

func (h *Handler) handleURLSubmission(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	h.startRun(w, pipeline.Input{URL: request.ImageURL})
}

func (h *Handler) handleFileSubmission(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		parts = r.MultipartForm.File["file"]
	}
	if len(parts) == 0 {
		h.writeError(w, "No files in submission", http.StatusBadRequest)
		return
	}

	var input pipeline.Input
	for _, part := range parts {
		file, err := part.Open()
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
		file.Close()
		if err != nil {
			h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if int64(len(data)) >= h.maxUploadBytes {
			h.writeError(w, "File too large", http.StatusBadRequest)
			return
		}
		input.Files = append(input.Files, pipeline.File{Name: part.Filename, Data: data})
	}

	h.startRun(w, input)
}

// startRun validates and launches the run, draining its event stream
// in the background so processing never blocks on a slow consumer.
func (h *Handler) startRun(w http.ResponseWriter, input pipeline.Input) {
	// The run outlives the submission request
	events, err := h.session.Run(context.Background(), input)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrUnsupportedInput):
			h.writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, pipeline.ErrRunActive):
			h.writeError(w, err.Error(), http.StatusConflict)
		default:
			h.writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	go func() {
		for event := range events {
			switch event.Type {
			case pipeline.EventItem:
				slog.Info("Item produced", "page", event.Page, "id", event.Item.ID)
			case pipeline.EventFailed:
				slog.Error("Run failed", "message", event.Message)
			}
		}
	}()

	h.writeJSON(w, map[string]any{
		"message": "Processing started",
		"files":   len(input.Files),
	})
}
