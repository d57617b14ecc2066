// Package pipeline runs one text through detection, resolution, overlap
// reduction and annotation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"nerlight/internal/annotate"
	"nerlight/internal/detect"
	"nerlight/internal/logging"
	"nerlight/internal/resolve"
	"nerlight/internal/stats"
	"nerlight/internal/trace"
)

type Format string

const (
	FormatHTML     Format = "html"
	FormatTerminal Format = "terminal"
	FormatRedact   Format = "redact"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatHTML, nil
	case FormatHTML, FormatTerminal, FormatRedact:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

type Pipeline struct {
	Runner  detect.Runner
	Policy  resolve.Policy
	Palette annotate.Palette
	Format  Format
	Logger  *log.Logger
}

type Result struct {
	Batch    detect.Batch
	Resolved []resolve.ResolvedSpan
	Kept     []resolve.ResolvedSpan
	Dropped  []resolve.ResolvedSpan
	Report   resolve.Report
	Output   string
	Redacted []annotate.RedactedItem
	Timings  trace.Durations
}

// Analyze runs the detectors over text and renders the result.
func (p *Pipeline) Analyze(ctx context.Context, text string) (*Result, error) {
	tr := trace.NewAnalysis()
	tr.DetectStart = time.Now()
	batch, err := p.Runner.Run(ctx, text)
	tr.DetectEnd = time.Now()
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	res, err := p.Render(text, batch, tr)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Render resolves an already collected batch and annotates text with it.
// tr may be nil.
func (p *Pipeline) Render(text string, batch detect.Batch, tr *trace.Analysis) (*Result, error) {
	if tr == nil {
		tr = trace.NewAnalysis()
	}
	logger := logging.OrDiscard(p.Logger)

	tr.ResolveStart = time.Now()
	if err := detect.ValidateBatch(text, batch); err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	resolved, report := resolve.ResolveWithReport(batch)
	kept, dropped, err := resolve.Disjoint(resolved, p.Policy)
	tr.ResolveEnd = time.Now()
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	for _, s := range dropped {
		logger.Debug("dropped overlapping span", "category", s.Category, "start", s.Start, "end", s.End, "confidence", s.Confidence)
	}

	tr.AnnotateStart = time.Now()
	var redactor *annotate.RedactRenderer
	var renderer annotate.Renderer
	switch p.Format {
	case FormatTerminal:
		renderer = annotate.TerminalRenderer{}
	case FormatRedact:
		redactor = annotate.NewRedactRenderer()
		renderer = redactor
	default:
		renderer = annotate.HTMLRenderer{}
	}
	out, err := annotate.New(p.Palette, renderer).Annotate(text, kept)
	tr.AnnotateEnd = time.Now()
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}

	end := time.Now()
	tr.LogAt(logger, end)
	res := &Result{
		Batch:    batch,
		Resolved: resolved,
		Kept:     kept,
		Dropped:  dropped,
		Report:   report,
		Output:   out,
		Timings:  tr.DurationsAt(end),
	}
	if redactor != nil {
		res.Redacted = redactor.Items()
	}
	return res, nil
}

func (r *Result) Summary(textLen int) stats.Summary {
	return stats.Collect(r.Batch, r.Report, r.Kept, r.Dropped, stats.Options{TextLen: textLen})
}
