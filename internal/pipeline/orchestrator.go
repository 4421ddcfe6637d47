package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sakthis4/Alt-Text/internal/crop"
	"github.com/sakthis4/Alt-Text/internal/models"
	"github.com/sakthis4/Alt-Text/internal/render"
)

// File is one uploaded file in a submission
type File struct {
	Name string
	Data []byte
}

// Input is one submission: either files (one document, or one or more
// images) or a single image URL, never both.
type Input struct {
	Files []File
	URL   string
}

// inputKind is the dispatch decision for a validated submission
type inputKind int

const (
	kindDocument inputKind = iota
	kindImages
	kindURL
)

// classify validates the submission shape before any processing
// starts. Mixing a document with other inputs is an input error.
func classify(input Input) (inputKind, error) {
	if input.URL != "" {
		if len(input.Files) > 0 {
			return 0, fmt.Errorf("%w: a URL cannot be combined with file uploads", ErrUnsupportedInput)
		}
		return kindURL, nil
	}
	if len(input.Files) == 0 {
		return 0, fmt.Errorf("%w: nothing to process", ErrUnsupportedInput)
	}

	documents, images := 0, 0
	for _, f := range input.Files {
		switch {
		case render.DetectFormat(f.Name, f.Data) != render.FormatUnknown:
			documents++
		case render.IsImageFile(f.Name):
			images++
		default:
			return 0, fmt.Errorf("%w: %q is not a supported file type", ErrUnsupportedInput, f.Name)
		}
	}

	switch {
	case documents > 1:
		return 0, fmt.Errorf("%w: only one document per submission", ErrUnsupportedInput)
	case documents == 1 && images > 0:
		return 0, fmt.Errorf("%w: a document cannot be combined with other files", ErrUnsupportedInput)
	case documents == 1:
		return kindDocument, nil
	default:
		return kindImages, nil
	}
}

// Run starts a processing run for the submission. Exactly one run is
// active at a time; starting a new run resets the prior result set.
// The returned channel streams progress events and closes when the run
// ends; the caller must drain it.
func (s *Session) Run(ctx context.Context, input Input) (<-chan Event, error) {
	kind, err := classify(input)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateProcessing {
		s.mu.Unlock()
		return nil, ErrRunActive
	}
	s.state = StateProcessing
	s.notice = ""
	s.summary = ""
	s.store.Clear()
	s.mu.Unlock()

	events := make(chan Event, 64)
	go s.run(ctx, kind, input, events)
	return events, nil
}

func (s *Session) run(ctx context.Context, kind inputKind, input Input, events chan<- Event) {
	defer close(events)
	events <- Event{Type: EventStarted}

	var err error
	switch kind {
	case kindDocument:
		err = s.processDocument(ctx, input.Files[0], events)
	case kindImages:
		err = s.processImages(ctx, input.Files, events)
	case kindURL:
		err = s.processURL(ctx, input.URL, events)
	}

	if err != nil && !errors.Is(err, ErrInsufficientBudget) {
		s.fail(ctx, err, events)
		return
	}
	s.finish(ctx, errors.Is(err, ErrInsufficientBudget), events)
}

// processDocument renders the document and runs page-level analysis,
// cropping each detection into its own item. Items surface
// incrementally, page by page.
func (s *Session) processDocument(ctx context.Context, file File, events chan<- Event) error {
	format := render.DetectFormat(file.Name, file.Data)
	pages, err := s.renderer.Render(ctx, file.Data, format)
	if err != nil {
		return err
	}

	for _, page := range pages {
		events <- Event{Type: EventPage, Page: page.Number}

		if !s.budget.Debit(s.cost) {
			slog.Warn("Token balance exhausted, aborting remaining pages", "page", page.Number)
			return ErrInsufficientBudget
		}

		detections, err := s.oracle.AnalyzePage(ctx, page.Raster)
		if err != nil {
			s.budget.Refund(s.cost)
			return err
		}

		for _, det := range detections {
			item, ok := s.buildPageItem(page, det)
			if !ok {
				continue
			}
			s.store.Append(item)
			events <- Event{Type: EventItem, Page: page.Number, Item: &item}
		}
	}
	return nil
}

// buildPageItem crops the detection out of its page. Degenerate
// geometry skips the single asset, never the run.
func (s *Session) buildPageItem(page render.Page, det models.PageDetection) (models.ProcessedItem, bool) {
	preview, err := s.cropper.Crop(page.Image, det.Box)
	if err != nil {
		var geomErr *crop.GeometryError
		if errors.As(err, &geomErr) {
			slog.Warn("Skipping asset with degenerate geometry", "page", page.Number, "err", err)
		} else {
			slog.Error("Failed to crop asset, skipping", "page", page.Number, "err", err)
		}
		return models.ProcessedItem{}, false
	}

	bounds := page.Image.Bounds()
	box := det.Box.Clamp(bounds.Dx(), bounds.Dy())
	pageRaster := page.Raster

	return models.ProcessedItem{
		ID:          uuid.NewString(),
		PageNumber:  page.Number,
		Annotation:  det.Annotation,
		Preview:     preview,
		PageImage:   &pageRaster,
		Box:         &box,
		TokensSpent: s.cost,
	}, true
}

// processImages analyzes each raw image as a pre-cropped snippet, in
// submission order. The source index doubles as the page number.
func (s *Session) processImages(ctx context.Context, files []File, events chan<- Event) error {
	for i, file := range files {
		if !s.budget.Debit(s.cost) {
			slog.Warn("Token balance exhausted, aborting remaining images", "index", i)
			return ErrInsufficientBudget
		}

		raster := models.Raster{Data: file.Data, MIME: render.ImageMIME(file.Name)}
		det, err := s.oracle.AnalyzeSnippet(ctx, raster, "")
		if err != nil {
			s.budget.Refund(s.cost)
			return err
		}
		if det == nil {
			slog.Warn("Snippet analysis returned no usable annotation", "file", file.Name)
			continue
		}

		item := models.ProcessedItem{
			ID:          uuid.NewString(),
			PageNumber:  i + 1,
			Annotation:  det.Annotation,
			Preview:     raster,
			TokensSpent: s.cost,
		}
		s.store.Append(item)
		events <- Event{Type: EventItem, Page: i + 1, Item: &item}
	}
	return nil
}

// processURL fetches the remote image and analyzes it as a snippet
func (s *Session) processURL(ctx context.Context, url string, events chan<- Event) error {
	data, mime, err := s.fetcher.FetchImage(ctx, url)
	if err != nil {
		return err
	}
	name := "download" + extensionForMIME(mime)
	return s.processImages(ctx, []File{{Name: name, Data: data}}, events)
}

// finish runs the trailing summary pass and transitions to Done. A run
// with zero items gets an explanatory notice and no summary call.
func (s *Session) finish(ctx context.Context, budgetExhausted bool, events chan<- Event) {
	if budgetExhausted {
		s.setNotice("Token balance exhausted; processing stopped early. Completed items were kept.")
	}

	annotations := s.store.Annotations()
	if len(annotations) > 0 {
		summary := s.oracle.Summarize(ctx, annotations)
		s.setSummary(summary)
		events <- Event{Type: EventSummary, Message: summary}
	} else if !budgetExhausted {
		s.setNotice("No visual assets were identified in the submission.")
	}

	s.setState(StateDone)
	events <- Event{Type: EventCompleted}
	slog.Info("Processing run completed", "items", len(annotations), "balance", s.budget.Balance())
}

// fail converts an unrecoverable error into a terminal Error state
// with a humanized message, preserving partial results.
func (s *Session) fail(ctx context.Context, err error, events chan<- Event) {
	slog.Error("Processing run failed", "err", err)
	message := s.oracle.ExplainError(ctx, err)
	s.setNotice(message)
	s.setState(StateError)
	events <- Event{Type: EventFailed, Message: message}
}

// Regenerate re-runs analysis for one existing item, replacing its
// analysis fields and confidence and charging one unit to both the
// session balance and the item's cumulative spend. Re-entry on the
// same item is refused while a regeneration is in flight.
func (s *Session) Regenerate(ctx context.Context, id string) error {
	working, err := s.store.BeginRegeneration(id)
	if err != nil {
		return err
	}

	if !s.budget.Debit(s.cost) {
		s.store.AbortRegeneration(id)
		return ErrInsufficientBudget
	}

	src := working.Preview
	var preview models.Raster
	if working.Box != nil && working.PageImage != nil {
		if recropped, err := s.recrop(*working.PageImage, *working.Box); err != nil {
			slog.Warn("Re-crop from page image failed, using existing preview", "id", id, "err", err)
		} else {
			src = recropped
			preview = recropped
		}
	}

	det, err := s.oracle.AnalyzeSnippet(ctx, src, string(working.Type))
	if err != nil {
		s.budget.Refund(s.cost)
		s.store.AbortRegeneration(id)
		return err
	}
	if det == nil {
		s.budget.Refund(s.cost)
		s.store.AbortRegeneration(id)
		return fmt.Errorf("regeneration produced no usable annotation")
	}

	return s.store.CompleteRegeneration(id, det.Annotation, preview, s.cost)
}

// recrop decodes the stored page raster and cuts the item's bounding
// box out of it again.
func (s *Session) recrop(page models.Raster, box models.BoundingBox) (models.Raster, error) {
	img, _, err := image.Decode(bytes.NewReader(page.Data))
	if err != nil {
		return models.Raster{}, fmt.Errorf("failed to decode page image: %w", err)
	}
	return s.cropper.Crop(img, box)
}

func extensionForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}
