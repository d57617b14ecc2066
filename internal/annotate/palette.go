package annotate

import "nerlight/internal/detect"

const DefaultFallbackColor = "#E0E0E0"

// Palette maps categories to highlight colors. Unknown categories use
// Fallback.
type Palette struct {
	Colors   map[detect.Category]string
	Fallback string
}

func DefaultPalette() Palette {
	return Palette{
		Colors: map[detect.Category]string{
			detect.PII: "#ADD8E6",
			detect.PCI: "#FFFFE0",
			detect.PHI: "#FFC0CB",
		},
		Fallback: DefaultFallbackColor,
	}
}

func (p Palette) Color(c detect.Category) string {
	if color, ok := p.Colors[c]; ok && color != "" {
		return color
	}
	if p.Fallback != "" {
		return p.Fallback
	}
	return DefaultFallbackColor
}

// With returns a copy of p with c mapped to color.
func (p Palette) With(c detect.Category, color string) Palette {
	colors := make(map[detect.Category]string, len(p.Colors)+1)
	for k, v := range p.Colors {
		colors[k] = v
	}
	colors[c] = color
	return Palette{Colors: colors, Fallback: p.Fallback}
}
