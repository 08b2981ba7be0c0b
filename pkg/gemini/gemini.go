// Package gemini implements the replacement service on Google Gemini image
// models.
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/menta2k/idphoto/pkg/client"
	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/processing"
)

// DefaultModel is an image-capable Gemini model.
const DefaultModel = "gemini-2.5-flash-image"

// APIKeyEnv is the environment variable holding the API key.
const APIKeyEnv = "GEMINI_API_KEY"

// Gemini is a client.Replacer backed by the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	proc        *processing.Processor
	quality     int
	temperature float32
}

// New connects to Gemini. An empty apiKey falls back to GEMINI_API_KEY.
func New(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", APIKeyEnv)
	}
	if model == "" {
		model = DefaultModel
	}

	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	return &Gemini{
		client:      c,
		model:       model,
		proc:        processing.NewProcessor(),
		quality:     90,
		temperature: 0.4,
	}, nil
}

// Close releases the underlying connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Replace sends the photo, the optional outfit and the prompt, and decodes
// the first image part of the answer.
func (g *Gemini) Replace(ctx context.Context, req client.Request) (image.Image, error) {
	parts, err := g.parts(req)
	if err != nil {
		return nil, err
	}

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, errors.Service(err, "gemini generate content")
	}

	data, err := imageFromResponse(resp)
	if err != nil {
		return nil, err
	}
	img, err := g.proc.Decode(data)
	if err != nil {
		return nil, errors.Service(err, "gemini returned an undecodable image")
	}
	return img, nil
}

func (g *Gemini) parts(req client.Request) ([]genai.Part, error) {
	if req.Image == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "replacement request has no image")
	}

	photo, err := g.proc.EncodeBytes(req.Image, "jpg", g.quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode photo: %w", err)
	}
	parts := []genai.Part{genai.ImageData("jpeg", photo)}

	if req.Outfit != nil {
		outfit, err := g.proc.EncodeBytes(req.Outfit, "jpg", g.quality)
		if err != nil {
			return nil, fmt.Errorf("failed to encode outfit: %w", err)
		}
		parts = append(parts, genai.ImageData("jpeg", outfit))
	}

	return append(parts, genai.Text(req.Prompt)), nil
}

// imageFromResponse returns the bytes of the first image blob in resp.
// A text-only answer is reported with the model's text as the message.
func imageFromResponse(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New(errors.ErrCodeService, "no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, errors.New(errors.ErrCodeService, "empty content returned from Gemini (finish reason %v)", candidate.FinishReason)
	}

	var text bytes.Buffer
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Blob:
			if strings.HasPrefix(p.MIMEType, "image/") && len(p.Data) > 0 {
				return p.Data, nil
			}
		case genai.Text:
			text.WriteString(string(p))
		}
	}

	if msg := strings.TrimSpace(text.String()); msg != "" {
		return nil, errors.New(errors.ErrCodeService, "gemini returned no image: %s", msg)
	}
	return nil, errors.New(errors.ErrCodeService, "gemini returned no image")
}
