// Package openai expands concepts with the Chat Completions API and generates rasters
// with the Images API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultChatModel is used when no model is configured.
	DefaultChatModel = "gpt-4o-mini"
	// DefaultImageModel is the image model requested by ImageGenerator.
	DefaultImageModel = "dall-e-3"
)

// ErrMissingAPIKey is returned when neither the argument nor OPENAI_API_KEY is set.
var ErrMissingAPIKey = errors.New("openai: api key is required")

// Client holds credentials and transport shared by the expander and the generator.
type Client struct {
	http         *http.Client
	apiKey       string
	organization string
	baseURL      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		if u != "" {
			cl.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithOrganization sets the OpenAI-Organization header.
func WithOrganization(org string) Option {
	return func(cl *Client) {
		cl.organization = org
	}
}

// NewClient creates a client. If apiKey is empty, it falls back to OPENAI_API_KEY.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		http:    &http.Client{Timeout: 120 * time.Second},
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("openai: unexpected status %s: %s", resp.Status, apiMessage(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiMessage extracts error.message from an error body, falling back to the raw text.
func apiMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(body))
}
