package docs

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in topics is not passed through.
var htmlRenderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		emoji.Emoji,
	),
	goldmark.WithRendererOptions(
		gmhtml.WithHardWraps(),
	),
)

// RenderHTML converts a topic to an HTML fragment. On failure the source comes back
// escaped inside <pre>.
func RenderHTML(md string) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	var b bytes.Buffer
	if err := htmlRenderer.Convert([]byte(md), &b); err != nil {
		return "<pre>" + html.EscapeString(md) + "</pre>"
	}
	return b.String()
}
