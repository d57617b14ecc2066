package detect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"nerlight/internal/logging"
)

var ErrTextTooLarge = errors.New("text exceeds max bytes")

type RunnerConfig struct {
	MaxBytes int
	Timeout  time.Duration
	MinScore float64
	// Degrade drops a failing category instead of failing the whole run.
	Degrade bool
}

// Runner invokes one detector per category over the same text and collects
// their output into a Batch.
type Runner struct {
	Detectors map[Category]Detector
	Config    RunnerConfig
	Logger    *log.Logger
}

// Run executes every detector concurrently. In strict mode the first failure
// is returned as a *DetectorError and no batch is produced.
func (r Runner) Run(ctx context.Context, text string) (Batch, error) {
	if r.Config.MaxBytes > 0 && len(text) > r.Config.MaxBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrTextTooLarge, len(text), r.Config.MaxBytes)
	}
	logger := logging.OrDiscard(r.Logger)

	cats := Batch{}
	for c := range r.Detectors {
		cats[c] = nil
	}
	order := cats.Categories()
	results := make([][]Detection, len(order))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range order {
		d := r.Detectors[c]
		g.Go(func() error {
			if d == nil {
				return nil
			}
			start := time.Now()
			found, err := r.detectOne(gctx, c, d, text)
			if err != nil {
				if r.Config.Degrade && ctx.Err() == nil {
					logger.Warn("detector failed, continuing without it", "category", c, "err", err)
					return nil
				}
				return &DetectorError{Category: c, Err: err}
			}
			logger.Debug("detector finished", "category", c, "detections", len(found), "took", time.Since(start))
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := make(Batch, len(order))
	for i, c := range order {
		batch[c] = results[i]
	}
	return batch, nil
}

func (r Runner) detectOne(ctx context.Context, c Category, d Detector, text string) ([]Detection, error) {
	if r.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Config.Timeout)
		defer cancel()
	}
	found, err := d.Detect(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout after %s: %w", r.Config.Timeout, err)
		}
		return nil, err
	}

	out := make([]Detection, 0, len(found))
	for i, e := range found {
		e.Category = c
		if err := ValidateDetection(e, len(text)); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Index = i
			}
			return nil, fmt.Errorf("non-conforming result: %w", err)
		}
		if e.Confidence < r.Config.MinScore {
			continue
		}
		out = append(out, e)
	}
	if len(found) > 0 && len(out) == 0 {
		logging.OrDiscard(r.Logger).Info("all detections filtered by min score", "category", c, "detected", len(found), "min_score", r.Config.MinScore)
	}
	return out, nil
}
