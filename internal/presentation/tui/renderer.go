package tui

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// ToMarkdown converts dialog text authored in the given format to markdown.
func ToMarkdown(text, format string) (string, error) {
	if format != dialog.FormatHTML {
		return text, nil
	}
	md, err := htmltomarkdown.ConvertString(text)
	if err != nil {
		return "", fmt.Errorf("failed to convert html dialog text: %w", err)
	}
	return md, nil
}

// PromptMarkdown builds the markdown shown for a dialog prompt, options included.
func PromptMarkdown(p dialog.Prompt) (string, error) {
	body, err := ToMarkdown(p.Text, p.Format)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(body))
	if len(p.Options) > 0 {
		sb.WriteString("\n\n")
		for i, opt := range p.Options {
			fmt.Fprintf(&sb, "- [%d] %s\n", i, opt)
		}
	}
	return sb.String(), nil
}
