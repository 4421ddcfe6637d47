package models

import (
	"encoding/base64"
	"strings"
)

// AssetType classifies a detected visual asset
type AssetType string

const (
	TypePhotograph      AssetType = "Photograph"
	TypeIllustration    AssetType = "Illustration"
	TypeDiagram         AssetType = "Diagram"
	TypeTable           AssetType = "Table"
	TypeChart           AssetType = "Chart/Graph"
	TypeEquation        AssetType = "Equation"
	TypeMap             AssetType = "Map"
	TypeComic           AssetType = "Comic"
	TypeScannedDocument AssetType = "Scanned Document"
	TypeOther           AssetType = "Other"
)

// AssetTypes lists all known asset types in display order
var AssetTypes = []AssetType{
	TypePhotograph,
	TypeIllustration,
	TypeDiagram,
	TypeTable,
	TypeChart,
	TypeEquation,
	TypeMap,
	TypeComic,
	TypeScannedDocument,
	TypeOther,
}

// IsValid reports whether t is one of the known asset types
func (t AssetType) IsValid() bool {
	for _, known := range AssetTypes {
		if t == known {
			return true
		}
	}
	return false
}

// NormalizeAssetType maps a free-form model answer onto a known asset type.
// Unknown values fall back to TypeOther.
func NormalizeAssetType(s string) AssetType {
	trimmed := strings.TrimSpace(s)
	for _, known := range AssetTypes {
		if strings.EqualFold(trimmed, string(known)) {
			return known
		}
	}
	// Common aliases the model tends to use
	switch strings.ToLower(trimmed) {
	case "photo", "picture":
		return TypePhotograph
	case "chart", "graph":
		return TypeChart
	case "drawing":
		return TypeIllustration
	case "scanned document", "scan":
		return TypeScannedDocument
	}
	return TypeOther
}

// BoundingBox locates an asset within its source page image, in pixels
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Within reports whether the box lies fully inside a w by h image
func (b BoundingBox) Within(w, h int) bool {
	return b.X >= 0 && b.Y >= 0 && b.Width > 0 && b.Height > 0 &&
		b.X+b.Width <= w && b.Y+b.Height <= h
}

// Clamp intersects the box with a w by h image. The result may be
// degenerate (zero or negative size) if the box lies entirely outside.
func (b BoundingBox) Clamp(w, h int) BoundingBox {
	x0, y0 := max(b.X, 0), max(b.Y, 0)
	x1, y1 := min(b.X+b.Width, w), min(b.Y+b.Height, h)
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Annotation holds the analysis fields returned by the vision model
// for a single asset. These are the four user-editable fields plus
// the model's confidence.
type Annotation struct {
	Type       AssetType `json:"type"`
	AltText    string    `json:"alt_text"`
	Keywords   []string  `json:"keywords"`
	Taxonomy   []string  `json:"taxonomy"`
	Confidence float64   `json:"confidence"`
}

// PageDetection is an asset found by whole-page analysis. The bounding
// box is always present and locates the asset on the analyzed page.
type PageDetection struct {
	Annotation
	Box BoundingBox
}

// SnippetDetection is an asset analyzed from an image already known to
// contain exactly one asset. No geometry is involved.
type SnippetDetection struct {
	Annotation
}

// Raster is an encoded image payload with its MIME type
type Raster struct {
	Data []byte `json:"-"`
	MIME string `json:"mime"`
}

// DataURI renders the raster as a self-describing data URI
func (r Raster) DataURI() string {
	return "data:" + r.MIME + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// IsZero reports whether the raster carries no image data
func (r Raster) IsZero() bool {
	return len(r.Data) == 0
}

// Draft snapshots the four editable annotation fields at the moment an
// edit begins, so Cancel can restore them exactly.
type Draft struct {
	Type     AssetType
	AltText  string
	Keywords []string
	Taxonomy []string
}

// SnapshotOf captures the editable fields of an annotation
func SnapshotOf(a Annotation) *Draft {
	return &Draft{
		Type:     a.Type,
		AltText:  a.AltText,
		Keywords: append([]string(nil), a.Keywords...),
		Taxonomy: append([]string(nil), a.Taxonomy...),
	}
}

// ProcessedItem is the unit of work tracked by the result store: one
// identified asset with its preview image and edit/regeneration state.
type ProcessedItem struct {
	ID         string `json:"id"`
	PageNumber int    `json:"page_number"`
	Annotation

	// Preview is the cropped (or whole) image shown to the user.
	Preview Raster `json:"preview"`

	// PageImage is the un-cropped page raster, retained only for
	// page-level detections so regeneration can re-crop. Box is set
	// if and only if PageImage is.
	PageImage *Raster      `json:"-"`
	Box       *BoundingBox `json:"bounding_box,omitempty"`

	TokensSpent  int  `json:"tokens_spent"`
	Editing      bool `json:"is_editing"`
	Saving       bool `json:"is_saving"`
	Regenerating bool `json:"is_regenerating"`

	// Original is present exactly while Editing is true
	Original *Draft `json:"-"`
}
