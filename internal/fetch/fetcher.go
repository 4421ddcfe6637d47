// Package fetch retrieves remote images submitted by URL
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNotImage is returned when the fetched content is not an image
var ErrNotImage = fmt.Errorf("the URL did not return an image")

// maxImageBytes caps how much of a remote response is read
const maxImageBytes = 20 * 1024 * 1024

// Fetcher downloads remote images
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a fetcher with a bounded request timeout
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchImage downloads the URL and returns the image bytes with their
// declared MIME type. Non-image content types are rejected.
func (f *Fetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image URL: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if mime, _, found := strings.Cut(contentType, ";"); found {
		contentType = mime
	}
	contentType = strings.TrimSpace(contentType)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("%w (got %q)", ErrNotImage, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	slog.Info("Fetched image from URL", "url", imageURL, "bytes", len(data), "mime", contentType)
	return data, contentType, nil
}
