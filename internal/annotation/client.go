// Package annotation wraps the Gemini vision API behind the three
// analysis operations the processing pipeline needs, validating every
// response against the declared schema.
package annotation

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sakthis4/Alt-Text/internal/models"
	"google.golang.org/api/option"
)

const (
	// DefaultModel is the vision model used unless overridden
	DefaultModel = "gemini-2.0-flash"

	temperature = 0.2
)

// Client talks to Gemini. It is safe for concurrent use.
type Client struct {
	genai *genai.Client
	model string
}

// NewClient creates a Gemini-backed annotation client. The API key is
// required; a missing key is a startup failure, not a runtime one.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{genai: client, model: model}, nil
}

// Close releases the underlying API client
func (c *Client) Close() error {
	return c.genai.Close()
}

// AnalyzePage extracts every visual asset from a rendered document
// page. Malformed items in the response are dropped; an empty or
// unparseable-but-empty response is a legitimate zero-asset page.
func (c *Client) AnalyzePage(ctx context.Context, img models.Raster) ([]models.PageDetection, error) {
	width, height := rasterSize(img)
	text, err := c.generate(ctx, "page analysis", buildPagePrompt(width, height), &img)
	if err != nil {
		return nil, err
	}

	detections, err := parsePageItems(text)
	if err != nil {
		return nil, err
	}
	slog.Info("Page analyzed", "detections", len(detections))
	return detections, nil
}

// AnalyzeSnippet analyzes an image known to contain exactly one asset.
// Returns nil when the response fails minimal validation.
func (c *Client) AnalyzeSnippet(ctx context.Context, img models.Raster, typeHint string) (*models.SnippetDetection, error) {
	text, err := c.generate(ctx, "snippet analysis", buildSnippetPrompt(typeHint), &img)
	if err != nil {
		return nil, err
	}
	return parseSnippetItem(text)
}

// Summarize produces a short natural-language description of the
// aggregate asset mix. It never fails: on any oracle error it degrades
// to a deterministic templated sentence.
func (c *Client) Summarize(ctx context.Context, items []models.Annotation) string {
	counts := make(map[models.AssetType]int, len(items))
	for _, item := range items {
		counts[item.Type]++
	}

	text, err := c.generate(ctx, "summary", buildSummaryPrompt(counts, len(items)), nil)
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("Summary generation failed, using templated fallback", "err", err)
		return FallbackSummary(counts, len(items))
	}
	return strings.TrimSpace(text)
}

// ExplainError turns a raw processing error into a best-effort
// human-readable message, falling back to the raw message when the
// explanation call itself fails.
func (c *Client) ExplainError(ctx context.Context, raw error) string {
	text, err := c.generate(ctx, "error explanation", buildExplainPrompt(raw.Error()), nil)
	if err != nil || strings.TrimSpace(text) == "" {
		return raw.Error()
	}
	return strings.TrimSpace(text)
}

// FallbackSummary builds the deterministic summary sentence used when
// the model cannot be reached, e.g. "2 Tables, 1 Chart/Graph found."
func FallbackSummary(counts map[models.AssetType]int, total int) string {
	if total == 0 {
		return "No visual assets were identified."
	}
	var parts []string
	for _, t := range models.AssetTypes {
		if n := counts[t]; n > 0 {
			label := string(t)
			if n != 1 {
				label = pluralize(label)
			}
			parts = append(parts, fmt.Sprintf("%d %s", n, label))
		}
	}
	return strings.Join(parts, ", ") + " found."
}

func pluralize(label string) string {
	switch {
	case strings.HasSuffix(label, "s"), strings.HasSuffix(label, "x"),
		strings.HasSuffix(label, "ch"), strings.HasSuffix(label, "sh"):
		return label + "es"
	}
	return label + "s"
}

// generate performs one model call and classifies its failure modes.
// JSON output is requested for image-bearing calls.
func (c *Client) generate(ctx context.Context, op, prompt string, img *models.Raster) (string, error) {
	model := c.genai.GenerativeModel(c.model)
	model.SetTemperature(temperature)

	parts := []genai.Part{genai.Text(prompt)}
	if img != nil {
		model.ResponseMIMEType = "application/json"
		parts = append(parts, genai.ImageData(imageFormat(img.MIME), img.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason == genai.BlockReasonSafety {
		return "", &SafetyBlockError{Op: op}
	}
	if len(resp.Candidates) == 0 {
		return "", &TransportError{Op: op, Err: fmt.Errorf("no candidates returned")}
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", &SafetyBlockError{Op: op}
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &TransportError{Op: op, Err: fmt.Errorf("empty content returned")}
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

// imageFormat maps a MIME type onto the bare format name genai expects
func imageFormat(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpeg"
	}
}

func rasterSize(r models.Raster) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(r.Data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
