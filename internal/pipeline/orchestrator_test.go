package pipeline

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/sakthis4/Alt-Text/internal/models"
	"github.com/sakthis4/Alt-Text/internal/render"
)

type fakeOracle struct {
	pages        [][]models.PageDetection
	pageErr      error
	pageCalls    int
	snippet      *models.SnippetDetection
	snippetErr   error
	snippetCalls int
	snippetHints []string
	summaryCalls int
	summarized   int
	release      chan struct{}
}

func (o *fakeOracle) AnalyzePage(ctx context.Context, img models.Raster) ([]models.PageDetection, error) {
	if o.release != nil {
		<-o.release
	}
	call := o.pageCalls
	o.pageCalls++
	if o.pageErr != nil {
		return nil, o.pageErr
	}
	if call < len(o.pages) {
		return o.pages[call], nil
	}
	return nil, nil
}

func (o *fakeOracle) AnalyzeSnippet(ctx context.Context, img models.Raster, typeHint string) (*models.SnippetDetection, error) {
	o.snippetCalls++
	o.snippetHints = append(o.snippetHints, typeHint)
	if o.snippetErr != nil {
		return nil, o.snippetErr
	}
	return o.snippet, nil
}

func (o *fakeOracle) Summarize(ctx context.Context, items []models.Annotation) string {
	o.summaryCalls++
	o.summarized = len(items)
	return "summary of the run"
}

func (o *fakeOracle) ExplainError(ctx context.Context, raw error) string {
	return "friendly: " + raw.Error()
}

type fakeRenderer struct {
	pages []render.Page
	err   error
}

func (r *fakeRenderer) Render(ctx context.Context, data []byte, format render.Format) ([]render.Page, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.pages, nil
}

type fakeFetcher struct {
	data []byte
	mime string
	err  error
}

func (f *fakeFetcher) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	return f.data, f.mime, f.err
}

func tableDetection(conf float64) models.PageDetection {
	return models.PageDetection{
		Annotation: models.Annotation{
			Type:       models.TypeTable,
			AltText:    "A revenue table",
			Keywords:   []string{"revenue"},
			Taxonomy:   []string{"Business"},
			Confidence: conf,
		},
		Box: models.BoundingBox{X: 10, Y: 10, Width: 100, Height: 50},
	}
}

func testPage(number int) render.Page {
	return render.Page{
		Number: number,
		Image:  image.NewRGBA(image.Rect(0, 0, 200, 200)),
		Raster: models.Raster{Data: []byte("raster"), MIME: "image/jpeg"},
	}
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func pdfInput() Input {
	return Input{Files: []File{{Name: "report.pdf", Data: []byte("%PDF-1.7")}}}
}

func TestRunDocument(t *testing.T) {
	oracle := &fakeOracle{pages: [][]models.PageDetection{
		{tableDetection(0.9)},
		nil,
	}}
	renderer := &fakeRenderer{pages: []render.Page{testPage(1), testPage(2)}}
	s := NewSession(oracle, renderer, &fakeFetcher{}, Options{TokenBudget: 10})

	events, err := s.Run(context.Background(), pdfInput())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got := drain(t, events)

	status := s.Status()
	if status.State != StateDone {
		t.Errorf("Expected state done, got %s", status.State)
	}
	if status.Items != 1 {
		t.Errorf("Expected 1 item, got %d", status.Items)
	}
	if status.Summary != "summary of the run" {
		t.Errorf("Expected summary, got %q", status.Summary)
	}
	// Two pages analyzed, both successful
	if status.Balance != 8 {
		t.Errorf("Expected balance 8, got %d", status.Balance)
	}
	if oracle.pageCalls != 2 {
		t.Errorf("Expected 2 page calls, got %d", oracle.pageCalls)
	}
	if oracle.summaryCalls != 1 || oracle.summarized != 1 {
		t.Errorf("Expected summary over 1 annotation, got %d calls over %d", oracle.summaryCalls, oracle.summarized)
	}

	expected := []EventType{EventStarted, EventPage, EventItem, EventPage, EventSummary, EventCompleted}
	types := eventTypes(got)
	if len(types) != len(expected) {
		t.Fatalf("Expected events %v, got %v", expected, types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Fatalf("Expected events %v, got %v", expected, types)
		}
	}

	item := s.Store().Items()[0]
	if item.Type != models.TypeTable || item.PageNumber != 1 {
		t.Errorf("Unexpected item: %+v", item)
	}
	if item.Box == nil || item.PageImage == nil {
		t.Error("Expected a document item to keep its box and page image")
	}
	if item.Preview.MIME != "image/jpeg" || len(item.Preview.Data) == 0 {
		t.Error("Expected a cropped JPEG preview")
	}
	if item.TokensSpent != 1 {
		t.Errorf("Expected 1 token spent, got %d", item.TokensSpent)
	}
}

func TestRunDocumentWithNoAssets(t *testing.T) {
	oracle := &fakeOracle{}
	renderer := &fakeRenderer{pages: []render.Page{testPage(1)}}
	s := NewSession(oracle, renderer, &fakeFetcher{}, Options{})

	events, err := s.Run(context.Background(), pdfInput())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	drain(t, events)

	status := s.Status()
	if status.State != StateDone {
		t.Errorf("Expected state done, got %s", status.State)
	}
	if status.Summary != "" || oracle.summaryCalls != 0 {
		t.Error("Expected no summary call for a zero-asset run")
	}
	if !strings.Contains(status.Notice, "No visual assets") {
		t.Errorf("Expected a zero-asset notice, got %q", status.Notice)
	}
}

func TestRunRejectsMixedInput(t *testing.T) {
	oracle := &fakeOracle{}
	s := NewSession(oracle, &fakeRenderer{}, &fakeFetcher{}, Options{})

	tests := []struct {
		name  string
		input Input
	}{
		{
			name: "document combined with image",
			input: Input{Files: []File{
				{Name: "report.pdf", Data: []byte("%PDF-1.7")},
				{Name: "figure.png"},
			}},
		},
		{
			name: "two documents",
			input: Input{Files: []File{
				{Name: "a.pdf", Data: []byte("%PDF-1.7")},
				{Name: "b.docx"},
			}},
		},
		{
			name:  "url combined with files",
			input: Input{URL: "https://example.com/x.png", Files: []File{{Name: "figure.png"}}},
		},
		{
			name:  "empty submission",
			input: Input{},
		},
		{
			name:  "unsupported file type",
			input: Input{Files: []File{{Name: "notes.txt"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Run(context.Background(), tt.input)
			if !errors.Is(err, ErrUnsupportedInput) {
				t.Errorf("Expected ErrUnsupportedInput, got %v", err)
			}
		})
	}

	if oracle.pageCalls != 0 || oracle.snippetCalls != 0 {
		t.Error("Rejected input must not reach the oracle")
	}
	if s.Status().State != StateIdle {
		t.Errorf("Rejected input must leave the session idle, got %s", s.Status().State)
	}
}

func TestRunStopsWhenBudgetExhausted(t *testing.T) {
	oracle := &fakeOracle{pages: [][]models.PageDetection{
		{tableDetection(0.9)},
		{tableDetection(0.8)},
	}}
	renderer := &fakeRenderer{pages: []render.Page{testPage(1), testPage(2)}}
	s := NewSession(oracle, renderer, &fakeFetcher{}, Options{TokenBudget: 1})

	events, err := s.Run(context.Background(), pdfInput())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	drain(t, events)

	status := s.Status()
	if status.State != StateDone {
		t.Errorf("Expected a graceful done state, got %s", status.State)
	}
	if status.Items != 1 {
		t.Errorf("Expected the completed item to be kept, got %d", status.Items)
	}
	if status.Balance != 0 {
		t.Errorf("Expected balance 0, got %d", status.Balance)
	}
	if !strings.Contains(status.Notice, "exhausted") {
		t.Errorf("Expected an exhaustion notice, got %q", status.Notice)
	}
	if oracle.pageCalls != 1 {
		t.Errorf("Expected processing to stop after 1 page call, got %d", oracle.pageCalls)
	}
}

func TestRunFailsWithExplainedError(t *testing.T) {
	oracle := &fakeOracle{pageErr: errors.New("connection reset")}
	renderer := &fakeRenderer{pages: []render.Page{testPage(1)}}
	s := NewSession(oracle, renderer, &fakeFetcher{}, Options{TokenBudget: 10})

	events, err := s.Run(context.Background(), pdfInput())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got := drain(t, events)

	status := s.Status()
	if status.State != StateError {
		t.Errorf("Expected state error, got %s", status.State)
	}
	if status.Notice != "friendly: connection reset" {
		t.Errorf("Expected the humanized message, got %q", status.Notice)
	}
	// The failed call is refunded
	if status.Balance != 10 {
		t.Errorf("Expected balance restored to 10, got %d", status.Balance)
	}

	last := got[len(got)-1]
	if last.Type != EventFailed || last.Message != "friendly: connection reset" {
		t.Errorf("Expected a failed event with the message, got %+v", last)
	}
}

func TestRunRenderFailure(t *testing.T) {
	renderErr := &render.ParseError{Format: render.FormatPDF, Err: errors.New("bad xref")}
	oracle := &fakeOracle{}
	s := NewSession(oracle, &fakeRenderer{err: renderErr}, &fakeFetcher{}, Options{TokenBudget: 10})

	events, err := s.Run(context.Background(), pdfInput())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	drain(t, events)

	status := s.Status()
	if status.State != StateError {
		t.Errorf("Expected state error, got %s", status.State)
	}
	if status.Balance != 10 {
		t.Errorf("Render failures must not spend tokens, balance %d", status.Balance)
	}
}

func TestRunImages(t *testing.T) {
	oracle := &fakeOracle{snippet: &models.SnippetDetection{Annotation: models.Annotation{
		Type:       models.TypeEquation,
		AltText:    "The quadratic formula",
		Confidence: 0.8,
	}}}
	s := NewSession(oracle, &fakeRenderer{}, &fakeFetcher{}, Options{TokenBudget: 10})

	input := Input{Files: []File{
		{Name: "first.png", Data: []byte("png-bytes")},
		{Name: "second.jpg", Data: []byte("jpg-bytes")},
	}}
	events, err := s.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	drain(t, events)

	items := s.Store().Items()
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].PageNumber != 1 || items[1].PageNumber != 2 {
		t.Errorf("Expected submission order as page numbers, got %d and %d", items[0].PageNumber, items[1].PageNumber)
	}
	// Raw images are their own previews, no box or page image
	if items[0].Box != nil || items[0].PageImage != nil {
		t.Error("Expected snippet items without box or page image")
	}
	if string(items[0].Preview.Data) != "png-bytes" {
		t.Error("Expected the uploaded bytes as the preview")
	}
	if oracle.snippetHints[0] != "" {
		t.Errorf("Expected no type hint for fresh images, got %q", oracle.snippetHints[0])
	}
}

func TestRunImagesSkipsEmptyDetections(t *testing.T) {
	oracle := &fakeOracle{snippet: nil}
	s := NewSession(oracle, &fakeRenderer{}, &fakeFetcher{}, Options{TokenBudget: 10})

	events, err := s.Run(context.Background(), Input{Files: []File{{Name: "blank.png", Data: []byte("x")}}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	drain(t, events)

	status := s.Status()
	if status.State != StateDone {
		t.Errorf("Expected state done, got %s", status.State)
	}
	if status.Items != 0 {
		t.Errorf("Expected no items, got %d", status.Items)
	}
	// The call happened and stays charged
	if status.Balance != 9 {
		t.Errorf("Expected balance 9, got %d", status.Balance)
	}
}

func TestRunURL(t *testing.T) {
	oracle := &fakeOracle{snippet: &models.SnippetDetection{Annotation: models.Annotation{
		Type:       models.TypeMap,
		AltText:    "A transit map",
		Confidence: 0.6,
	}}}
	fetcher := &fakeFetcher{data: []byte("remote-bytes"), mime: "image/png"}
	s := NewSession(oracle, &fakeRenderer{}, fetcher, Options{TokenBudget: 10})

	events, err := s.Run(context.Background(), Input{URL: "https://example.com/map.png"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	drain(t, events)

	items := s.Store().Items()
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if string(items[0].Preview.Data) != "remote-bytes" {
		t.Error("Expected the fetched bytes as the preview")
	}
	if items[0].Preview.MIME != "image/png" {
		t.Errorf("Expected the fetched MIME type, got %s", items[0].Preview.MIME)
	}
}

func TestRunURLFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("404 from host")}
	s := NewSession(&fakeOracle{}, &fakeRenderer{}, fetcher, Options{TokenBudget: 10})

	events, err := s.Run(context.Background(), Input{URL: "https://example.com/missing.png"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	drain(t, events)

	status := s.Status()
	if status.State != StateError {
		t.Errorf("Expected state error, got %s", status.State)
	}
	if status.Balance != 10 {
		t.Errorf("Fetch failures must not spend tokens, balance %d", status.Balance)
	}
}

func TestRunRefusedWhileActive(t *testing.T) {
	oracle := &fakeOracle{release: make(chan struct{})}
	renderer := &fakeRenderer{pages: []render.Page{testPage(1)}}
	s := NewSession(oracle, renderer, &fakeFetcher{}, Options{TokenBudget: 10})

	events, err := s.Run(context.Background(), pdfInput())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := s.Run(context.Background(), pdfInput()); !errors.Is(err, ErrRunActive) {
		t.Errorf("Expected ErrRunActive, got %v", err)
	}
	if err := s.Reset(); !errors.Is(err, ErrResetWhileProcessing) {
		t.Errorf("Expected ErrResetWhileProcessing, got %v", err)
	}

	close(oracle.release)
	drain(t, events)

	if _, err := s.Run(context.Background(), pdfInput()); err != nil {
		t.Errorf("Expected a new run after completion, got %v", err)
	}
}

func TestResetKeepsBalance(t *testing.T) {
	oracle := &fakeOracle{pages: [][]models.PageDetection{{tableDetection(0.9)}}}
	renderer := &fakeRenderer{pages: []render.Page{testPage(1)}}
	s := NewSession(oracle, renderer, &fakeFetcher{}, Options{TokenBudget: 10})

	events, err := s.Run(context.Background(), pdfInput())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	drain(t, events)

	if err := s.Reset(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	status := s.Status()
	if status.State != StateIdle || status.Items != 0 || status.Notice != "" || status.Summary != "" {
		t.Errorf("Reset did not clear run state: %+v", status)
	}
	if status.Balance != 9 {
		t.Errorf("Reset must keep the spent balance, got %d", status.Balance)
	}
}

func TestRegenerate(t *testing.T) {
	oracle := &fakeOracle{snippet: &models.SnippetDetection{Annotation: models.Annotation{
		Type:       models.TypeTable,
		AltText:    "A clearer revenue table",
		Confidence: 0.95,
	}}}
	s := NewSession(oracle, &fakeRenderer{}, &fakeFetcher{}, Options{TokenBudget: 10})

	s.Store().Append(models.ProcessedItem{
		ID:          "item-1",
		PageNumber:  1,
		Annotation:  models.Annotation{Type: models.TypeTable, AltText: "A revenue table", Confidence: 0.7},
		Preview:     models.Raster{Data: []byte("crop"), MIME: "image/jpeg"},
		TokensSpent: 1,
	})

	if err := s.Regenerate(context.Background(), "item-1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	item, _ := s.Store().Get("item-1")
	if item.AltText != "A clearer revenue table" || item.Confidence != 0.95 {
		t.Errorf("Regeneration did not replace the annotation: %+v", item.Annotation)
	}
	if item.TokensSpent != 2 {
		t.Errorf("Expected cumulative spend 2, got %d", item.TokensSpent)
	}
	if item.Regenerating {
		t.Error("Regeneration did not release the gate")
	}
	if s.Balance() != 9 {
		t.Errorf("Expected balance 9, got %d", s.Balance())
	}
	// The current type is passed as a hint
	if len(oracle.snippetHints) != 1 || oracle.snippetHints[0] != "Table" {
		t.Errorf("Expected the item type as hint, got %v", oracle.snippetHints)
	}
}

func TestRegenerateRefusedWithoutBudget(t *testing.T) {
	oracle := &fakeOracle{snippet: &models.SnippetDetection{}}
	s := NewSession(oracle, &fakeRenderer{}, &fakeFetcher{}, Options{TokenBudget: 1, ItemCost: 2})

	s.Store().Append(models.ProcessedItem{
		ID:          "item-1",
		Annotation:  models.Annotation{Type: models.TypeTable, AltText: "original"},
		Preview:     models.Raster{Data: []byte("crop"), MIME: "image/jpeg"},
		TokensSpent: 2,
	})

	if err := s.Regenerate(context.Background(), "item-1"); !errors.Is(err, ErrInsufficientBudget) {
		t.Fatalf("Expected ErrInsufficientBudget, got %v", err)
	}

	item, _ := s.Store().Get("item-1")
	if item.AltText != "original" || item.TokensSpent != 2 {
		t.Errorf("Refused regeneration must not touch the item: %+v", item)
	}
	if item.Regenerating {
		t.Error("Refused regeneration did not release the gate")
	}
	if oracle.snippetCalls != 0 {
		t.Error("Refused regeneration must not reach the oracle")
	}
	if s.Balance() != 1 {
		t.Errorf("Refused regeneration must not spend tokens, balance %d", s.Balance())
	}
}

func TestRegenerateFailureRefunds(t *testing.T) {
	oracle := &fakeOracle{snippetErr: errors.New("model overloaded")}
	s := NewSession(oracle, &fakeRenderer{}, &fakeFetcher{}, Options{TokenBudget: 10})

	s.Store().Append(models.ProcessedItem{
		ID:         "item-1",
		Annotation: models.Annotation{Type: models.TypeChart, AltText: "original"},
		Preview:    models.Raster{Data: []byte("crop"), MIME: "image/jpeg"},
	})

	if err := s.Regenerate(context.Background(), "item-1"); err == nil {
		t.Fatal("Expected an error")
	}

	item, _ := s.Store().Get("item-1")
	if item.AltText != "original" {
		t.Errorf("Failed regeneration must not touch the item: %+v", item)
	}
	if item.Regenerating {
		t.Error("Failed regeneration did not release the gate")
	}
	if s.Balance() != 10 {
		t.Errorf("Failed call must be refunded, balance %d", s.Balance())
	}
}

func TestRegenerateUnknownItem(t *testing.T) {
	s := NewSession(&fakeOracle{}, &fakeRenderer{}, &fakeFetcher{}, Options{})

	if err := s.Regenerate(context.Background(), "missing"); err == nil {
		t.Error("Expected an error for an unknown item")
	}
}
