// Package handlers exposes the processing session over HTTP: submit a
// document, images, or a URL; review and edit items; export; reset.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakthis4/Alt-Text/internal/pipeline"
)

type Handler struct {
	session        *pipeline.Session
	maxUploadBytes int64
}

func New(session *pipeline.Session, maxUploadBytes int64) *Handler {
	return &Handler{
		session:        session,
		maxUploadBytes: maxUploadBytes,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// HandleStatus reports the run state machine, notice, summary, token
// balance, and item count.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.session.Status())
}

// HandleReset returns the session to idle and clears all items
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.session.Reset(); err != nil {
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeJSON(w, map[string]any{"message": "Session reset"})
}
