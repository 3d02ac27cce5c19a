// Package gemini expands concepts and generates rasters with the Gemini API.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/plotline/internal/logging"
	"github.com/aretw0/plotline/pkg/domain"
	genai "google.golang.org/genai"
)

const (
	// DefaultTextModel expands prompts.
	DefaultTextModel = "gemini-2.5-flash"
	// DefaultImageModel generates rasters.
	DefaultImageModel = "imagen-3.0-generate-002"
	// maxAttempts bounds calls per Expand or Generate.
	maxAttempts = 3
)

// ErrEmptyResponse is returned when the model answers without usable content.
var ErrEmptyResponse = errors.New("gemini: empty response")

// models is the subset of *genai.Models this package calls.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Client is a thin wrapper around the official genai client.
type Client struct {
	models    models
	textModel string
	imgModel  string
	backoff   time.Duration
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTextModel overrides DefaultTextModel.
func WithTextModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.textModel = model
		}
	}
}

// WithImageModel overrides DefaultImageModel.
func WithImageModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.imgModel = model
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the Gemini API. An empty apiKey lets the SDK read
// GEMINI_API_KEY or GOOGLE_API_KEY from the environment.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return newClient(cli.Models, opts...), nil
}

func newClient(m models, opts ...Option) *Client {
	c := &Client{
		models:    m,
		textModel: DefaultTextModel,
		imgModel:  DefaultImageModel,
		backoff:   300 * time.Millisecond,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Expand implements ports.PromptExpander.
func (c *Client) Expand(ctx context.Context, concept string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: domain.ExpansionSystemPrompt}}},
	}

	var text string
	err := c.retry(ctx, "expand", func() error {
		resp, err := c.models.GenerateContent(ctx, c.textModel,
			[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: concept}}}},
			cfg,
		)
		if err != nil {
			return err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return ErrEmptyResponse
		}
		var b strings.Builder
		for _, p := range resp.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
		text = strings.TrimSpace(b.String())
		if text == "" {
			return ErrEmptyResponse
		}
		return nil
	})
	return text, err
}

// Generate implements ports.ImageGenerator. The image is returned inline as a data URL.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var ref string
	err := c.retry(ctx, "generate", func() error {
		resp, err := c.models.GenerateImages(ctx, c.imgModel, prompt, &genai.GenerateImagesConfig{NumberOfImages: 1})
		if err != nil {
			return err
		}
		if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
			len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
			return ErrEmptyResponse
		}
		img := resp.GeneratedImages[0].Image
		mimeType := img.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		ref = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.ImageBytes)
		return nil
	})
	return ref, err
}

// retry runs fn up to maxAttempts times with exponential backoff.
func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		c.logger.Debug("Gemini call failed", "op", op, "attempt", attempt+1, "err", lastErr)
		if attempt == maxAttempts-1 {
			break
		}
		t := time.NewTimer(c.backoff * time.Duration(1<<attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("gemini %s after %d attempts: %w", op, maxAttempts, lastErr)
}
