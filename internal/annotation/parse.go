package annotation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakthis4/Alt-Text/internal/models"
)

// itemJSON mirrors the declared response schema. Pointer fields let
// validation distinguish a missing field from a zero value.
type itemJSON struct {
	Type        *string  `json:"type"`
	AltText     *string  `json:"altText"`
	Keywords    []string `json:"keywords"`
	Taxonomy    []string `json:"taxonomy"`
	Confidence  *float64 `json:"confidence"`
	BoundingBox *boxJSON `json:"boundingBox"`
}

type boxJSON struct {
	X      *int `json:"x"`
	Y      *int `json:"y"`
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

// trimFences strips markdown code fences the model sometimes wraps
// around its JSON despite instructions.
func trimFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// parsePageItems validates a whole-page analysis response. Items
// missing any required field are dropped rather than propagated, since
// one malformed item must not invalidate the page. An empty response
// yields an empty list; a syntactically invalid one is a FormatError.
func parsePageItems(response string) ([]models.PageDetection, error) {
	raw := trimFences(response)
	if raw == "" {
		return nil, nil
	}

	var items []itemJSON
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, &FormatError{Op: "page analysis", Err: err}
	}

	detections := make([]models.PageDetection, 0, len(items))
	for i, item := range items {
		ann, ok := validateAnnotation(item)
		if !ok {
			slog.Warn("Dropping page item with missing fields", "index", i)
			continue
		}
		box, ok := validateBox(item.BoundingBox)
		if !ok {
			slog.Warn("Dropping page item without usable bounding box", "index", i)
			continue
		}
		detections = append(detections, models.PageDetection{Annotation: ann, Box: box})
	}
	return detections, nil
}

// parseSnippetItem validates a single-asset analysis response. Minimal
// validation only: type and altText must be present. A response that
// fails it yields no detection rather than an error; a syntactically
// invalid one is a FormatError.
func parseSnippetItem(response string) (*models.SnippetDetection, error) {
	raw := trimFences(response)
	if raw == "" {
		return nil, &FormatError{Op: "snippet analysis", Err: fmt.Errorf("empty response")}
	}

	var item itemJSON
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, &FormatError{Op: "snippet analysis", Err: err}
	}

	if item.Type == nil || item.AltText == nil {
		slog.Warn("Snippet response failed minimal validation")
		return nil, nil
	}

	ann := models.Annotation{
		Type:       models.NormalizeAssetType(*item.Type),
		AltText:    strings.TrimSpace(*item.AltText),
		Keywords:   item.Keywords,
		Taxonomy:   item.Taxonomy,
		Confidence: clampConfidence(item.Confidence),
	}
	return &models.SnippetDetection{Annotation: ann}, nil
}

func validateAnnotation(item itemJSON) (models.Annotation, bool) {
	if item.Type == nil || item.AltText == nil || item.Keywords == nil ||
		item.Taxonomy == nil || item.Confidence == nil {
		return models.Annotation{}, false
	}
	return models.Annotation{
		Type:       models.NormalizeAssetType(*item.Type),
		AltText:    strings.TrimSpace(*item.AltText),
		Keywords:   item.Keywords,
		Taxonomy:   item.Taxonomy,
		Confidence: clampConfidence(item.Confidence),
	}, true
}

func validateBox(b *boxJSON) (models.BoundingBox, bool) {
	if b == nil || b.X == nil || b.Y == nil || b.Width == nil || b.Height == nil {
		return models.BoundingBox{}, false
	}
	return models.BoundingBox{X: *b.X, Y: *b.Y, Width: *b.Width, Height: *b.Height}, true
}

func clampConfidence(c *float64) float64 {
	if c == nil {
		return 0
	}
	switch {
	case *c < 0:
		return 0
	case *c > 1:
		return 1
	}
	return *c
}
