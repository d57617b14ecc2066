package detect

import (
	"context"
	"sort"
	"strings"
)

// Category is the detector group a span came from, not a fine-grained entity
// type.
type Category string

const (
	PII Category = "PII"
	PCI Category = "PCI"
	PHI Category = "PHI"
)

// DefaultCategories lists the built-in categories in display order.
var DefaultCategories = []Category{PII, PCI, PHI}

func ParseCategory(s string) Category {
	return Category(strings.ToUpper(strings.TrimSpace(s)))
}

func (c Category) String() string { return string(c) }

// Detection is a single entity reported by one detector. Start and End are
// half-open byte offsets into the original, unescaped text.
type Detection struct {
	Start       int      `json:"start" validate:"gte=0"`
	End         int      `json:"end" validate:"gtefield=Start"`
	MatchedText string   `json:"matched_text"`
	Category    Category `json:"category" validate:"required"`
	Confidence  float64  `json:"confidence"`
	// EntityType is the model's own label (e.g. CREDITCARDNUMBER), if any.
	EntityType  string   `json:"entity_type,omitempty"`
}

func (d Detection) Len() int { return d.End - d.Start }

// Batch holds every detector's output for one input text, keyed by category.
type Batch map[Category][]Detection

// Categories returns the batch keys in sorted order.
func (b Batch) Categories() []Category {
	out := make([]Category, 0, len(b))
	for c := range b {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len counts detections across all categories.
func (b Batch) Len() int {
	n := 0
	for _, ds := range b {
		n += len(ds)
	}
	return n
}

// Detector maps input text to the spans it recognises. Implementations are
// read-only and safe for concurrent use.
type Detector interface {
	Detect(ctx context.Context, text string) ([]Detection, error)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(ctx context.Context, text string) ([]Detection, error)

func (f DetectorFunc) Detect(ctx context.Context, text string) ([]Detection, error) {
	return f(ctx, text)
}
