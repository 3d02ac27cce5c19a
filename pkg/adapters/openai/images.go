package openai

import (
	"context"
	"errors"
)

type imageReq struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Quality string `json:"quality,omitempty"`
	Size    string `json:"size,omitempty"`
}

type imageResp struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// ImageGenerator implements ports.ImageGenerator. It returns the hosted image URL, or a
// data URL when the service answers with inline base64.
type ImageGenerator struct {
	client  *Client
	model   string
	quality string
	size    string
}

// ImageOption configures an ImageGenerator.
type ImageOption func(*ImageGenerator)

// WithImageModel overrides DefaultImageModel.
func WithImageModel(model string) ImageOption {
	return func(g *ImageGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithSize requests a specific image size such as "1024x1024".
func WithSize(size string) ImageOption {
	return func(g *ImageGenerator) {
		g.size = size
	}
}

// NewImageGenerator creates a generator requesting one standard-quality image.
func NewImageGenerator(client *Client, opts ...ImageOption) *ImageGenerator {
	g := &ImageGenerator{client: client, model: DefaultImageModel, quality: "standard"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate requests one image for prompt.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var out imageResp
	err := g.client.post(ctx, "/images/generations", imageReq{
		Model:   g.model,
		Prompt:  prompt,
		N:       1,
		Quality: g.quality,
		Size:    g.size,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", errors.New("openai: no image returned")
	}
	if out.Data[0].URL != "" {
		return out.Data[0].URL, nil
	}
	if out.Data[0].B64JSON != "" {
		return "data:image/png;base64," + out.Data[0].B64JSON, nil
	}
	return "", errors.New("openai: image without url")
}
