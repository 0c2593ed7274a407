// Package markdown converts note content to HTML.
package markdown

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Converter turns markdown source into HTML.
type Converter interface {
	Convert(src string) (string, error)
}

// Goldmark is a Converter backed by goldmark with GitHub-flavoured extensions
// (tables, strikethrough, task lists, autolinks) and hard line breaks.
type Goldmark struct {
	md goldmark.Markdown
}

// New returns a goldmark converter.
func New() *Goldmark {
	return &Goldmark{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)}
}

// Convert implements Converter.
func (g *Goldmark) Convert(src string) (string, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render converts src and turns a conversion failure into an inline error
// block so a preview is always produced.
func Render(c Converter, src string) string {
	out, err := c.Convert(src)
	if err != nil {
		return `<div class="markdown-error">` + html.EscapeString(err.Error()) + `</div>`
	}
	return out
}
