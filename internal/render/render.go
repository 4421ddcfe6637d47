// Package render converts uploaded documents into ordered sequences of
// page raster images for downstream visual analysis.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/sakthis4/Alt-Text/internal/models"
)

// Format identifies a supported document format
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatUnknown Format = ""
)

// Page is a single rendered document page. Number is 1-based and pages
// are emitted strictly in document order. Image is the decoded raster,
// kept so detected assets can be cropped without a re-decode; Raster is
// the same page encoded for transport.
type Page struct {
	Number int
	Image  image.Image
	Raster models.Raster
}

// Renderer converts document bytes into page images. Rendering is all
// or nothing: a failure on any page yields no pages at all.
type Renderer interface {
	Render(ctx context.Context, data []byte, format Format) ([]Page, error)
}

// ParseError reports a document that could not be parsed or rendered
// (corrupt file, unsupported encoding, password protection). It is
// fatal to the current run and no partial output is produced.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s document: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DetectFormat infers a document format from the file name, falling
// back to content sniffing when the extension is unhelpful.
func DetectFormat(filename string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	}
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return FormatPDF
	}
	return FormatUnknown
}

// IsImageFile reports whether a file name looks like a raw image upload
func IsImageFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp":
		return true
	}
	return false
}

// ImageMIME returns the MIME type for a raw image upload by extension
func ImageMIME(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	}
	return "application/octet-stream"
}
