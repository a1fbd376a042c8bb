// Package mdrender renders Markdown to sanitized HTML, the registry's
// stand-in for the external Markdown-rendering collaborator described as
// an opaque render(markdown) -> safe_html function.
package mdrender

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown to sanitized, safe-to-embed HTML.
type Renderer struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// New builds a Renderer using goldmark's default extension set, with raw
// HTML passed through to the sanitizer, and bluemonday's UGC
// (user-generated content) policy.
func New() *Renderer {
	return &Renderer{
		md:        goldmark.New(goldmark.WithRendererOptions(html.WithUnsafe())),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Render converts markdown to sanitized HTML.
func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("mdrender: converting markdown: %w", err)
	}
	return r.sanitizer.SanitizeString(buf.String()), nil
}
