// Package crop produces tightly-cropped asset previews from full page
// rasters using the bounding boxes returned by page analysis.
package crop

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/sakthis4/Alt-Text/internal/models"
)

// DefaultMargin is the safety margin applied on all sides of a crop so
// anti-aliased edges are not clipped.
const DefaultMargin = 5

const jpegQuality = 90

// GeometryError reports a bounding box with non-positive dimensions,
// or one left without usable area after margin expansion and clamping.
// The affected asset is skipped, never the run.
type GeometryError struct {
	Box models.BoundingBox
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("invalid crop geometry: box %dx%d at (%d,%d) has no area inside the image",
		e.Box.Width, e.Box.Height, e.Box.X, e.Box.Y)
}

// Cropper cuts bounding-box regions out of page images
type Cropper struct {
	Margin int
}

// New returns a cropper with the default safety margin
func New() *Cropper {
	return &Cropper{Margin: DefaultMargin}
}

// Crop returns the boxed region of img, expanded by the margin and
// clamped to the image bounds, encoded as a JPEG raster.
func (c *Cropper) Crop(img image.Image, box models.BoundingBox) (models.Raster, error) {
	region, err := c.Region(img.Bounds(), box)
	if err != nil {
		return models.Raster{}, err
	}

	cropped := subImage(img, region)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return models.Raster{}, fmt.Errorf("failed to encode crop: %w", err)
	}

	return models.Raster{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// Region computes the margin-expanded, clamped pixel rectangle for a
// box within bounds. Fails with a GeometryError when the clamped
// region has non-positive width or height.
func (c *Cropper) Region(bounds image.Rectangle, box models.BoundingBox) (image.Rectangle, error) {
	if box.Width <= 0 || box.Height <= 0 {
		return image.Rectangle{}, &GeometryError{Box: box}
	}

	x0 := box.X - c.Margin
	y0 := box.Y - c.Margin
	x1 := box.X + box.Width + c.Margin
	y1 := box.Y + box.Height + c.Margin

	region := image.Rect(x0, y0, x1, y1).Intersect(bounds)
	if region.Dx() <= 0 || region.Dy() <= 0 {
		return image.Rectangle{}, &GeometryError{Box: box}
	}
	return region, nil
}

// subImage extracts a region, copying when the source image type does
// not support zero-copy sub-imaging.
func subImage(img image.Image, region image.Rectangle) image.Image {
	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(region)
	}

	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(dst, dst.Bounds(), img, region.Min, draw.Src)
	return dst
}
