// Package llamacpp implements the replacement service against an
// OpenAI-compatible chat completions server (llama.cpp server, LocalAI,
// OpenRouter and similar) whose model answers with an image part.
package llamacpp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/idphoto/pkg/client"
	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/processing"
)

type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	proc       *processing.Processor
}

// OpenAI-compatible message format
type Message struct {
	Role    string        `json:"role"`
	Content any           `json:"content"` // Can be string or []ContentPart
	Images  []ContentPart `json:"images,omitempty"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// OpenAI-compatible chat completion request
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Modalities  []string  `json:"modalities,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

// OpenAI-compatible chat completion response
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// NewClient creates a client for serverURL. apiKey may be empty.
func NewClient(serverURL, model, apiKey string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		model:   model,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		proc: processing.NewProcessor(),
	}, nil
}

// Replace sends the photo and optional outfit as data URLs and decodes the
// first image the model returns.
func (c *Client) Replace(ctx context.Context, r client.Request) (image.Image, error) {
	if r.Image == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "replacement request has no image")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	content := []ContentPart{{Type: "text", Text: r.Prompt}}
	for _, img := range []image.Image{r.Image, r.Outfit} {
		if img == nil {
			continue
		}
		url, err := c.dataURL(img)
		if err != nil {
			return nil, err
		}
		content = append(content, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url}})
	}

	req := ChatCompletionRequest{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: content}},
		Modalities:  []string{"image", "text"},
		Temperature: 0.4,
		Stream:      false,
	}

	respBody, err := c.sendRequest(ctx, "/v1/chat/completions", req)
	if err != nil {
		return nil, errors.Service(err, "request failed")
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, errors.Service(err, "failed to parse response")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(errors.ErrCodeService, "no choices in response")
	}

	data, err := imageFromMessage(resp.Choices[0].Message)
	if err != nil {
		return nil, err
	}
	img, err := c.proc.Decode(data)
	if err != nil {
		return nil, errors.Service(err, "server returned an undecodable image")
	}
	return img, nil
}

func (c *Client) dataURL(img image.Image) (string, error) {
	data, err := c.proc.EncodeBytes(img, "jpg", 90)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// imageFromMessage finds the first data-URL image in the message, looking
// at the images list and then at content parts.
func imageFromMessage(m Message) ([]byte, error) {
	parts := append([]ContentPart{}, m.Images...)
	var text string

	// Content can be a plain string or a list of parts
	switch content := m.Content.(type) {
	case string:
		text = content
	case []any:
		for _, item := range content {
			partMap, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := partMap["text"].(string); ok && text == "" {
				text = t
			}
			if iu, ok := partMap["image_url"].(map[string]any); ok {
				if u, ok := iu["url"].(string); ok {
					parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: u}})
				}
			}
		}
	}

	for _, p := range parts {
		if p.ImageURL == nil {
			continue
		}
		if data, ok := decodeDataURL(p.ImageURL.URL); ok {
			return data, nil
		}
	}

	if text = strings.TrimSpace(text); text != "" {
		return nil, errors.New(errors.ErrCodeService, "model returned no image: %s", text)
	}
	return nil, errors.New(errors.ErrCodeService, "model returned no image")
}

func decodeDataURL(u string) ([]byte, bool) {
	if !strings.HasPrefix(u, "data:image/") {
		return nil, false
	}
	i := strings.Index(u, ";base64,")
	if i < 0 {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(u[i+len(";base64,"):])
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (c *Client) sendRequest(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
