package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer turns an outbound markdown message into terminal text.
type Renderer func(string) (string, error)

// Plain returns messages unchanged.
func Plain(markdown string) (string, error) {
	return markdown, nil
}

// NewRenderer renders markdown with glamour when stdout is a terminal
// and falls back to Plain otherwise.
func NewRenderer() Renderer {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return Plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return Plain
	}
	return func(markdown string) (string, error) {
		out, err := r.Render(markdown)
		if err != nil {
			return markdown, err
		}
		return strings.TrimRight(out, "\n"), nil
	}
}
