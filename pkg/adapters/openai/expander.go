package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/aretw0/plotline/pkg/domain"
)

type chatReq struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResp struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Expander implements ports.PromptExpander.
type Expander struct {
	client *Client
	model  string
	system string
}

// NewExpander creates an expander. An empty model selects DefaultChatModel.
func NewExpander(client *Client, model string) *Expander {
	if model == "" {
		model = DefaultChatModel
	}
	return &Expander{client: client, model: model, system: domain.ExpansionSystemPrompt}
}

// Expand asks the model for a simple, drawable description of concept.
func (e *Expander) Expand(ctx context.Context, concept string) (string, error) {
	var out chatResp
	err := e.client.post(ctx, "/chat/completions", chatReq{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: e.system},
			{Role: "user", Content: concept},
		},
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai: empty completion")
	}
	return text, nil
}
