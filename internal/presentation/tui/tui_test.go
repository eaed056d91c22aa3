package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")

	out := buf.String()
	assert.Contains(t, out, "v1.2.3")
	assert.Contains(t, out, "|___/_|")
}

func TestPlain(t *testing.T) {
	out, err := Plain("*bold*")
	assert.NoError(t, err)
	assert.Equal(t, "*bold*", out)
}

func TestNewRendererNonTerminal(t *testing.T) {
	// go test pipes stdout, so the plain renderer is selected.
	r := NewRenderer()
	out, err := r("1. *Basic Wash*")
	assert.NoError(t, err)
	assert.Contains(t, out, "Basic Wash")
}
