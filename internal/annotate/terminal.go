package annotate

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"nerlight/internal/resolve"
)

// TerminalRenderer highlights entities with ANSI background colors. Escape
// sequences and other control characters in the input are removed so the
// text cannot drive the terminal.
type TerminalRenderer struct {
	Renderer *lipgloss.Renderer
}

func (r TerminalRenderer) Plain(b *strings.Builder, text string) {
	b.WriteString(terminalSafe(text))
}

func (r TerminalRenderer) Entity(b *strings.Builder, _ resolve.ResolvedSpan, text, color string) {
	renderer := r.Renderer
	if renderer == nil {
		renderer = lipgloss.DefaultRenderer()
	}
	style := renderer.NewStyle().
		Background(lipgloss.Color(color)).
		Foreground(lipgloss.Color("#000000")).
		TabWidth(lipgloss.NoTabConversion)
	// Styled blocks are padded to a rectangle, so style each line alone.
	for i, line := range strings.Split(terminalSafe(text), "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		if line == "" {
			continue
		}
		b.WriteString(style.Render(line))
	}
}

func terminalSafe(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
