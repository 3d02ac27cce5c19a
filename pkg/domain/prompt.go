package domain

import "strings"

// FallbackPrompt replaces the expanded prompt when the expansion service fails.
const FallbackPrompt = "A beautiful and vivid scene, inspired by your input, could not be generated."

// ExpansionSystemPrompt instructs the language model how to expand a concept.
const ExpansionSystemPrompt = "You are a creative assistant that specializes in generating simple, clean, and easy-to-draw " +
	"descriptions for visual art. Your task is to take prompts provided by users and transform them into clear, " +
	"straightforward descriptions that can guide image generation tools to produce simple, minimalistic artwork. " +
	"Make sure the prompts avoid unnecessary details and focus on basic shapes, lines, and forms. The goal is to " +
	"create drawable images that are not overly complex, ensuring they can be easily sketched or drawn."

// ImageStyleSuffix is appended to every image prompt so the raster vectorizes into clean strokes.
const ImageStyleSuffix = " the output should be 2 dimensional clean line drawings with medium to low complexity. " +
	"the lines should be pure black and the background solid white. there should be no infill "

// MaxImagePromptRunes bounds the expanded prompt before the style suffix is added.
const MaxImagePromptRunes = 800

// GenerationPrompt is the outcome of the expansion stage.
type GenerationPrompt struct {
	Text string `json:"text"`
	// Degraded is true when Text is FallbackPrompt because expansion failed.
	Degraded bool `json:"degraded"`
	// Cause is the expansion failure behind a degraded prompt.
	Cause error `json:"-"`
}

// DegradedPrompt builds the fallback prompt for a failed expansion.
func DegradedPrompt(cause error) GenerationPrompt {
	return GenerationPrompt{Text: FallbackPrompt, Degraded: true, Cause: cause}
}

// ComposeImagePrompt truncates a prompt and appends the line-art style suffix.
func ComposeImagePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if r := []rune(prompt); len(r) > MaxImagePromptRunes {
		prompt = string(r[:MaxImagePromptRunes])
	}
	return prompt + ImageStyleSuffix
}
