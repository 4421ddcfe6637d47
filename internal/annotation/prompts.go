package annotation

import (
	"fmt"
	"strings"

	"github.com/sakthis4/Alt-Text/internal/models"
)

func assetTypeList() string {
	names := make([]string, len(models.AssetTypes))
	for i, t := range models.AssetTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// buildPagePrompt asks for every distinct visual asset on a rendered
// document page, with pixel-space geometry for cropping.
func buildPagePrompt(width, height int) string {
	return fmt.Sprintf(`You are an accessibility specialist analyzing a scanned document page for distinct visual assets (images, tables, charts, equations, maps, and similar figures). The page image is %d pixels wide and %d pixels tall.

Identify EVERY distinct visual asset on the page. Ignore running text, headers, footers, and page numbers.

For each asset provide:
- type: one of: %s
- altText: a concise, descriptive alternative text suitable for screen readers (1-2 sentences)
- keywords: 3-8 short keywords describing the asset
- taxonomy: a category path from general to specific, e.g. ["Science", "Biology", "Cell Diagram"]
- confidence: your confidence in the classification, between 0 and 1
- boundingBox: the asset's pixel coordinates on this page as {"x", "y", "width", "height"}

OUTPUT FORMAT:
Respond with ONLY a JSON array of objects:

[
  {
    "type": "...",
    "altText": "...",
    "keywords": ["..."],
    "taxonomy": ["..."],
    "confidence": 0.0,
    "boundingBox": {"x": 0, "y": 0, "width": 0, "height": 0}
  }
]

Every field is required on every object. If the page contains no visual assets, respond with an empty array [].`, width, height, assetTypeList())
}

// buildSnippetPrompt analyzes an image already known to contain exactly
// one asset, so no geometry is requested.
func buildSnippetPrompt(typeHint string) string {
	hint := ""
	if typeHint != "" {
		hint = fmt.Sprintf("\nA previous analysis classified this asset as %q; reconsider from scratch but use this as context.", typeHint)
	}

	return fmt.Sprintf(`You are an accessibility specialist. The supplied image contains exactly one visual asset.%s

Provide:
- type: one of: %s
- altText: a concise, descriptive alternative text suitable for screen readers (1-2 sentences)
- keywords: 3-8 short keywords describing the asset
- taxonomy: a category path from general to specific, e.g. ["Science", "Biology", "Cell Diagram"]
- confidence: your confidence in the classification, between 0 and 1

OUTPUT FORMAT:
Respond with ONLY a single JSON object:

{
  "type": "...",
  "altText": "...",
  "keywords": ["..."],
  "taxonomy": ["..."],
  "confidence": 0.0
}`, hint, assetTypeList())
}

// buildSummaryPrompt describes the aggregate asset mix in one or two
// sentences of natural language.
func buildSummaryPrompt(counts map[models.AssetType]int, total int) string {
	var parts []string
	for _, t := range models.AssetTypes {
		if n := counts[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}

	return fmt.Sprintf(`A document analysis identified %d visual assets with this breakdown: %s.

Write one or two friendly sentences summarizing what was found, suitable to show a user reviewing the results. Respond with plain text only, no JSON and no markdown.`, total, strings.Join(parts, ", "))
}

// buildExplainPrompt turns a raw processing error into a short
// human-readable explanation.
func buildExplainPrompt(raw string) string {
	return fmt.Sprintf(`The following error occurred while processing a user's document in an asset-extraction tool:

%s

Explain in one plain-English sentence what likely went wrong and what the user could try. Respond with plain text only.`, raw)
}
