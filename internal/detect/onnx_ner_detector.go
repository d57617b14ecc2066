package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

type ONNXNERConfig struct {
	Category Category
	ModelDir string
	MaxBytes int
}

// nerSession runs a token-classification model and returns one row of
// logits per input position.
type nerSession interface {
	Run(ctx context.Context, inputIDs, attentionMask, tokenTypeIDs []int64) ([][]float32, error)
}

// ONNXNERDetector runs an exported token-classification model from a model
// directory holding model.onnx, labels.json and tokenizer.json. The model is
// loaded lazily on first use; a load failure is cached.
type ONNXNERDetector struct {
	cfg       ONNXNERConfig
	once      sync.Once
	loadErr   error
	labels    map[int]string
	tokenizer *WordPieceTokenizer
	session   nerSession
}

func NewONNXNERDetector(cfg ONNXNERConfig) *ONNXNERDetector {
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 32 * 1024
	}
	return &ONNXNERDetector{cfg: cfg}
}

func (d *ONNXNERDetector) init() error {
	d.once.Do(func() {
		modelPath := filepath.Join(d.cfg.ModelDir, "model.onnx")
		if _, err := os.Stat(modelPath); err != nil {
			d.loadErr = fmt.Errorf("model missing: %w", err)
			return
		}
		labels, err := LoadLabels(filepath.Join(d.cfg.ModelDir, "labels.json"))
		if err != nil {
			d.loadErr = fmt.Errorf("load labels: %w", err)
			return
		}
		tok, err := NewWordPieceTokenizer(filepath.Join(d.cfg.ModelDir, "tokenizer.json"))
		if err != nil {
			d.loadErr = fmt.Errorf("load tokenizer: %w", err)
			return
		}
		session, err := createONNXSession(modelPath)
		if err != nil {
			d.loadErr = fmt.Errorf("create session: %w", err)
			return
		}
		d.labels = labels
		d.tokenizer = tok
		d.session = session
	})
	return d.loadErr
}

// LoadLabels reads an id2label mapping such as {"0": "O", "1": "B-NAME"}.
func LoadLabels(path string) (map[int]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var byKey map[string]string
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, err
	}
	labels := make(map[int]string, len(byKey))
	for k, v := range byKey {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("label id %q: %w", k, err)
		}
		labels[idx] = v
	}
	return labels, nil
}

func (d *ONNXNERDetector) Detect(ctx context.Context, text string) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(text) == 0 {
		return nil, nil
	}
	if len(text) > d.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrTextTooLarge, len(text), d.cfg.MaxBytes)
	}
	if err := d.init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNERUnavailable, err)
	}
	enc, err := d.tokenizer.Encode(text)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(enc.Words))
	scores := make([]float64, len(enc.Words))
	for i := range labels {
		labels[i] = "O"
	}
	for wn, w := range enc.Windows {
		logits, err := d.session.Run(ctx, w.InputIDs, w.AttentionMask, w.TokenTypeIDs)
		if err != nil {
			return nil, err
		}
		if len(logits) != len(w.InputIDs) {
			return nil, fmt.Errorf("window %d: model returned %d rows for %d tokens", wn, len(logits), len(w.InputIDs))
		}
		d.labelWords(w, logits, labels, scores)
	}
	return tokensToDetections(text, enc.Words, labels, scores, d.cfg.Category), nil
}

// labelWords sets the label of every word in w from its first sub-token.
func (d *ONNXNERDetector) labelWords(w Window, logits [][]float32, labels []string, scores []float64) {
	prev := -1
	for pos, wi := range w.WordIdx {
		if wi < 0 || wi == prev {
			continue
		}
		prev = wi
		probs := softmax(logits[pos])
		best := 0
		for j, p := range probs {
			if p > probs[best] {
				best = j
			}
		}
		if label, ok := d.labels[best]; ok {
			labels[wi] = label
			scores[wi] = probs[best]
		}
	}
}

func softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(l))
	}
	sum := 0.0
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
