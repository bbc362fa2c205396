package service

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer turns Markdown into styled terminal output.
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}

type glamourRenderer struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer. An empty or "auto" style follows
// the terminal background; other values name a glamour standard style such
// as "dark", "light" or "notty".
func NewMarkdownRenderer(style string, width int) (MarkdownRenderer, error) {
	if width <= 0 {
		width = DefaultRenderWidth
	}
	styleOpt := glamour.WithAutoStyle()
	if s := strings.TrimSpace(style); s != "" && s != "auto" {
		styleOpt = glamour.WithStandardStyle(s)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &glamourRenderer{renderer: r}, nil
}

func (g *glamourRenderer) Render(markdown string) (string, error) {
	out, err := g.renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
