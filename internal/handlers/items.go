package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sakthis4/Alt-Text/internal/models"
	"github.com/sakthis4/Alt-Text/internal/pipeline"
)

// itemView is the wire shape of a processed item
type itemView struct {
	models.ProcessedItem
	PreviewURI string `json:"preview_uri"`
}

// HandleItems lists the collection, sorted by page number
func (h *Handler) HandleItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	items := h.session.Store().Items()
	views := make([]itemView, len(items))
	for i, item := range items {
		views[i] = itemView{ProcessedItem: item, PreviewURI: item.Preview.DataURI()}
	}
	h.writeJSON(w, views)
}

// HandleItemAction routes /api/items/{id}/{edit|save|cancel|regenerate}
func (h *Handler) HandleItemAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/items/")
	id, action, found := strings.Cut(rest, "/")
	if !found || id == "" {
		h.writeError(w, "Expected /api/items/{id}/{action}", http.StatusBadRequest)
		return
	}

	switch action {
	case "edit":
		h.handleEdit(w, r, id)
	case "save":
		h.respond(w, id, h.session.Store().Save(id))
	case "cancel":
		h.respond(w, id, h.session.Store().Cancel(id))
	case "regenerate":
		h.handleRegenerate(w, r, id)
	default:
		h.writeError(w, "Unknown action: "+action, http.StatusNotFound)
	}
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request, id string) {
	var request struct {
		Field string `json:"field"`
		Value any    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, id, h.session.Store().Edit(id, request.Field, request.Value))
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request, id string) {
	err := h.session.Regenerate(r.Context(), id)
	if errors.Is(err, pipeline.ErrInsufficientBudget) {
		h.writeError(w, err.Error(), http.StatusPaymentRequired)
		return
	}
	h.respond(w, id, err)
}

func (h *Handler) respond(w http.ResponseWriter, id string, err error) {
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	item, ok := h.session.Store().Get(id)
	if !ok {
		h.writeError(w, "Item not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, itemView{ProcessedItem: item, PreviewURI: item.Preview.DataURI()})
}

// HandleExport serializes the collection as CSV (default) or parquet
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Query().Get("format") {
	case "parquet":
		w.Header().Set("Content-Type", "application/vnd.apache.parquet")
		w.Header().Set("Content-Disposition", `attachment; filename="assets.parquet"`)
		if err := h.session.Store().WriteParquet(w); err != nil {
			h.writeError(w, "Export failed: "+err.Error(), http.StatusInternalServerError)
		}
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="assets.csv"`)
		if err := h.session.Store().WriteCSV(w); err != nil {
			h.writeError(w, "Export failed: "+err.Error(), http.StatusInternalServerError)
		}
	default:
		h.writeError(w, "Unknown export format", http.StatusBadRequest)
	}
}
