package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/plotline/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Summary describes a run as Markdown.
func Summary(result *domain.Result) string {
	var b strings.Builder
	b.WriteString("# Run summary\n\n")
	fmt.Fprintf(&b, "**Concept:** %s\n\n", result.Concept)

	if result.Prompt.Degraded {
		b.WriteString("**Prompt (fallback):** ")
	} else {
		b.WriteString("**Prompt:** ")
	}
	fmt.Fprintf(&b, "%s\n\n", result.Prompt.Text)

	if bundle := result.Bundle; bundle != nil {
		fmt.Fprintf(&b, "## Bundle `%s`\n\n", bundle.ID)
		b.WriteString("| Artifact | Path |\n|---|---|\n")
		for _, kind := range bundle.Kinds() {
			fmt.Fprintf(&b, "| %s | `%s` |\n", kind, bundle.Path(kind))
		}
		b.WriteString("\n")
	}
	if result.ArchiveURL != "" {
		fmt.Fprintf(&b, "**Archive link:** %s\n\n", result.ArchiveURL)
	}
	if len(result.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

// RenderSummary renders the summary for a terminal, or returns the plain Markdown when
// styled is false or rendering fails.
func RenderSummary(result *domain.Result, styled bool) string {
	md := Summary(result)
	if !styled {
		return md
	}
	out, err := NewRenderer()(md)
	if err != nil {
		return md
	}
	return out
}
