package detect

import (
	"fmt"
	"strings"
	"time"
)

const (
	KindRegex   = "regex"
	KindONNX    = "onnx"
	KindSidecar = "sidecar"
)

// Spec describes how to build the detector for one category.
type Spec struct {
	Category Category
	Kind     string
	ModelDir string
	URL      string
	Model    string
	Timeout  time.Duration
	MaxBytes int
}

func NewDetector(s Spec) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case "", KindRegex:
		return RegexDetector{Category: s.Category}, nil
	case KindONNX:
		if s.ModelDir == "" {
			return nil, fmt.Errorf("%s: onnx detector needs a model_dir", s.Category)
		}
		return NewONNXNERDetector(ONNXNERConfig{Category: s.Category, ModelDir: s.ModelDir, MaxBytes: s.MaxBytes}), nil
	case KindSidecar:
		if s.URL == "" {
			return nil, fmt.Errorf("%s: sidecar detector needs a url", s.Category)
		}
		return NewSidecarDetector(SidecarConfig{Category: s.Category, BaseURL: s.URL, Model: s.Model, Timeout: s.Timeout}), nil
	default:
		return nil, fmt.Errorf("%s: unknown detector kind %q", s.Category, s.Kind)
	}
}

// DetectorsFromSpecs builds one detector per category. A category listed
// twice is an error.
func DetectorsFromSpecs(specs []Spec) (map[Category]Detector, error) {
	out := make(map[Category]Detector, len(specs))
	for _, s := range specs {
		if _, dup := out[s.Category]; dup {
			return nil, fmt.Errorf("duplicate detector for category %s", s.Category)
		}
		d, err := NewDetector(s)
		if err != nil {
			return nil, err
		}
		out[s.Category] = d
	}
	return out, nil
}
