package annotate

import (
	"html"
	"strings"

	"nerlight/internal/resolve"
)

// HTMLRenderer wraps entities in <mark> elements with an inline background
// color. All text and attribute values are HTML-escaped.
type HTMLRenderer struct{}

func (HTMLRenderer) Plain(b *strings.Builder, text string) {
	b.WriteString(html.EscapeString(text))
}

func (HTMLRenderer) Entity(b *strings.Builder, span resolve.ResolvedSpan, text, color string) {
	b.WriteString(`<mark data-category="`)
	b.WriteString(html.EscapeString(span.Category.String()))
	b.WriteString(`" style="background-color:`)
	b.WriteString(html.EscapeString(color))
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(text))
	b.WriteString(`</mark>`)
}
