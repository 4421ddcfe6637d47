package render

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/sakthis4/Alt-Text/internal/models"
)

// DefaultDPI renders pages at twice the nominal 72 DPI page resolution,
// which preserves enough detail for bounding-box level visual analysis.
const DefaultDPI = 144

const jpegQuality = 90

// FitzRenderer renders PDF and DOCX documents with MuPDF via go-fitz
type FitzRenderer struct {
	DPI float64
}

// NewFitzRenderer returns a renderer using the default 2x upscale
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{DPI: DefaultDPI}
}

// Render converts document bytes into ordered, 1-indexed page images.
// Any parse or render failure returns a ParseError and no pages.
func (r *FitzRenderer) Render(ctx context.Context, data []byte, format Format) ([]Page, error) {
	if format != FormatPDF && format != FormatDOCX {
		return nil, &ParseError{Format: format, Err: fmt.Errorf("unsupported document format %q", format)}
	}

	doc, cleanup, err := openDocument(data, format)
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}
	defer cleanup()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, &ParseError{Format: format, Err: fmt.Errorf("document has no pages")}
	}

	dpi := r.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	pages := make([]Page, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(pageNum, dpi)
		if err != nil {
			return nil, &ParseError{Format: format, Err: fmt.Errorf("failed to render page %d: %w", pageNum+1, err)}
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, &ParseError{Format: format, Err: fmt.Errorf("failed to encode page %d: %w", pageNum+1, err)}
		}

		bounds := img.Bounds()
		pages = append(pages, Page{
			Number: pageNum + 1,
			Image:  img,
			Raster: models.Raster{Data: buf.Bytes(), MIME: "image/jpeg"},
		})
		slog.Debug("Rendered page", "page", pageNum+1, "width", bounds.Dx(), "height", bounds.Dy())
	}

	slog.Info("Document rendered", "format", format, "pages", len(pages))
	return pages, nil
}

// openDocument loads the document into MuPDF. DOCX bytes go through a
// temp file so MuPDF picks the right handler from the extension.
func openDocument(data []byte, format Format) (*fitz.Document, func(), error) {
	if format == FormatPDF {
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, nil, err
		}
		return doc, func() { doc.Close() }, nil
	}

	tmp, err := os.CreateTemp("", "alt-text-*."+string(format))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	doc, err := fitz.New(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return nil, nil, err
	}

	cleanup := func() {
		doc.Close()
		os.Remove(tmpPath)
	}
	return doc, cleanup, nil
}
