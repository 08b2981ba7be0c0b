package client

import (
	"context"
	"image"
)

// Request is one background or outfit replacement call.
type Request struct {
	// Image is the graded photo, already resized for the service.
	Image image.Image
	// BackgroundColor is a hex color such as "#ffffff", or "original" to keep the background.
	BackgroundColor string
	// Outfit is an optional reference garment raster.
	Outfit image.Image
	// Prompt is the full instruction sent to the model.
	Prompt string
}

// Replacer returns a new raster for a replacement request.
type Replacer interface {
	Replace(ctx context.Context, req Request) (image.Image, error)
}

// ReplacerFunc adapts a function to the Replacer interface.
type ReplacerFunc func(ctx context.Context, req Request) (image.Image, error)

// Replace calls f.
func (f ReplacerFunc) Replace(ctx context.Context, req Request) (image.Image, error) {
	return f(ctx, req)
}
