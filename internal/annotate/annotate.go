// Package annotate renders text with resolved spans wrapped in
// category-specific markup. Offsets are always consumed in original-text
// coordinates: the text is walked left to right and each plain or entity run
// is escaped on its own as it is emitted.
package annotate

import (
	"errors"
	"strings"
	"unicode/utf8"

	"nerlight/internal/detect"
	"nerlight/internal/resolve"
)

// Renderer writes runs of text in one output format. Only Entity may emit
// markup, and only from its own templates; text from the input always goes
// through the format's escaping.
type Renderer interface {
	Plain(b *strings.Builder, text string)
	Entity(b *strings.Builder, span resolve.ResolvedSpan, text, color string)
}

type Annotator struct {
	Palette  Palette
	Renderer Renderer
}

func New(p Palette, r Renderer) *Annotator {
	if r == nil {
		r = HTMLRenderer{}
	}
	return &Annotator{Palette: p, Renderer: r}
}

// Annotate renders text with HTML highlights using the default palette.
func Annotate(text string, spans []resolve.ResolvedSpan) (string, error) {
	return New(DefaultPalette(), HTMLRenderer{}).Annotate(text, spans)
}

// Annotate wraps every span of text. Spans must lie inside text on rune
// boundaries and must not overlap; violations fail with a
// *detect.ValidationError or *resolve.OverlapError rather than produce
// corrupted output.
func (a *Annotator) Annotate(text string, spans []resolve.ResolvedSpan) (string, error) {
	for i, s := range spans {
		if err := checkBounds(text, s); err != nil {
			var ve *detect.ValidationError
			if errors.As(err, &ve) {
				ve.Index = i
			}
			return "", err
		}
	}

	sorted := make([]resolve.ResolvedSpan, len(spans))
	copy(sorted, spans)
	resolve.SortSpans(sorted)

	var out strings.Builder
	out.Grow(len(text) + len(sorted)*64)
	cursor := 0
	for i, s := range sorted {
		if s.Start < cursor {
			return "", &resolve.OverlapError{A: sorted[i-1], B: s}
		}
		a.Renderer.Plain(&out, text[cursor:s.Start])
		a.Renderer.Entity(&out, s, text[s.Start:s.End], a.Palette.Color(s.Category))
		cursor = s.End
	}
	a.Renderer.Plain(&out, text[cursor:])
	return out.String(), nil
}

func checkBounds(text string, s resolve.ResolvedSpan) error {
	switch {
	case s.Start < 0:
		return &detect.ValidationError{Category: s.Category, Field: "start", Reason: "must not be negative"}
	case s.End < s.Start:
		return &detect.ValidationError{Category: s.Category, Field: "end", Reason: "must not precede start"}
	case s.End > len(text):
		return &detect.ValidationError{Category: s.Category, Field: "end", Reason: "exceeds text length"}
	case !onRuneBoundary(text, s.Start):
		return &detect.ValidationError{Category: s.Category, Field: "start", Reason: "splits a UTF-8 sequence"}
	case !onRuneBoundary(text, s.End):
		return &detect.ValidationError{Category: s.Category, Field: "end", Reason: "splits a UTF-8 sequence"}
	}
	return nil
}

func onRuneBoundary(text string, i int) bool {
	return i == len(text) || utf8.RuneStart(text[i])
}
