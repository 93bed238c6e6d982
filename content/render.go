package content

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		gmhtml.WithXHTML(),
	),
)

// jsxLine matches MDX component and import lines, which have no HTML
// equivalent outside the front-end bundle.
var jsxLine = regexp.MustCompile(`(?m)^\s*(import\s.+from\s.+|export\s.+|<[A-Z][A-Za-z0-9]*[^>]*/>)\s*$`)

// RenderHTML converts a post body to HTML. MDX-only lines (imports, exports
// and self-closing components) are dropped first.
func RenderHTML(post Post) (template.HTML, error) {
	source := jsxLine.ReplaceAllString(post.Content, "")

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", post.Slug, err)
	}
	return template.HTML(buf.String()), nil
}
