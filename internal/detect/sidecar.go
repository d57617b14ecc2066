package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// SidecarConfig points a SidecarDetector at a token-classification pipeline
// served over HTTP (for example a transformers pipeline behind a small web
// app).
type SidecarConfig struct {
	Category Category
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Client   *http.Client
}

// SidecarDetector posts text to {BaseURL}/ner and converts the pipeline's
// code-point offsets into byte offsets. Unlike a best-effort classifier it
// never turns a transport failure into "no entities".
type SidecarDetector struct {
	cfg  SidecarConfig
	url  string
	http *http.Client
}

func NewSidecarDetector(cfg SidecarConfig) *SidecarDetector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &SidecarDetector{
		cfg:  cfg,
		url:  strings.TrimRight(cfg.BaseURL, "/") + "/ner",
		http: client,
	}
}

type sidecarRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type sidecarResponse struct {
	Entities []sidecarEntity `json:"entities"`
}

type sidecarEntity struct {
	Entity string  `json:"entity"`
	Score  float64 `json:"score"`
	Word   string  `json:"word"`
	Start  *int    `json:"start"`
	End    *int    `json:"end"`
}

func (d *SidecarDetector) Detect(ctx context.Context, text string) ([]Detection, error) {
	body, err := json.Marshal(sidecarRequest{Text: text, Model: d.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("sidecar: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sidecar: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sidecar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sidecar: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("sidecar: decode: %w", err)
	}
	return d.toDetections(text, result.Entities)
}

func (d *SidecarDetector) toDetections(text string, entities []sidecarEntity) ([]Detection, error) {
	offsets := runeByteOffsets(text)
	out := make([]Detection, 0, len(entities))
	for i, e := range entities {
		if e.Start == nil || e.End == nil {
			return nil, &ValidationError{Category: d.cfg.Category, Index: i, Field: "start/end", Reason: "is required"}
		}
		start, end := *e.Start, *e.End
		switch {
		case start < 0:
			return nil, &ValidationError{Category: d.cfg.Category, Index: i, Field: "start", Reason: "must not be negative"}
		case end < start:
			return nil, &ValidationError{Category: d.cfg.Category, Index: i, Field: "end", Reason: "must not precede start"}
		case end >= len(offsets):
			return nil, &ValidationError{Category: d.cfg.Category, Index: i, Field: "end", Reason: "exceeds text length"}
		}
		out = append(out, Detection{
			Start:       offsets[start],
			End:         offsets[end],
			MatchedText: e.Word,
			Category:    d.cfg.Category,
			Confidence:  e.Score,
			EntityType:  entityType(e.Entity),
		})
	}
	return out, nil
}

// runeByteOffsets maps code-point index i to its byte offset; the final
// element is len(text).
func runeByteOffsets(text string) []int {
	out := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		out = append(out, i)
	}
	return append(out, len(text))
}

func entityType(label string) string {
	if prefix, typ, ok := strings.Cut(label, "-"); ok && (prefix == "B" || prefix == "I") {
		return typ
	}
	return label
}
