package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"nerlight/internal/detect"
	"nerlight/internal/pipeline"
	"nerlight/internal/resolve"
	"nerlight/internal/stats"
)

var loadConfigFunc = loadConfig

func annotateCommand(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("annotate", flag.ContinueOnError)
	rf := addRunFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfigFunc()
	if err != nil {
		return err
	}
	if err := rf.apply(&cfg); err != nil {
		return err
	}
	text, err := readInput(fs.Args(), *rf.file, stdin)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := p.Analyze(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, res.Output)
	if *rf.stats {
		printSummary(os.Stderr, res.Summary(len(text)))
	}
	return nil
}

type resolveOutput struct {
	Resolved []resolve.ResolvedSpan `json:"resolved"`
	Dropped  []resolve.ResolvedSpan `json:"dropped,omitempty"`
	Report   resolve.Report         `json:"report"`
}

// resolveCommand prints the resolved spans as JSON. With --batch the
// detections are read from a JSON file keyed by category instead of being
// produced by the configured detectors.
func resolveCommand(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	rf := addRunFlags(fs)
	batchFile := fs.String("batch", "", "JSON detection batch to resolve instead of running detectors")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfigFunc()
	if err != nil {
		return err
	}
	if err := rf.apply(&cfg); err != nil {
		return err
	}
	text, err := readInput(fs.Args(), *rf.file, stdin)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	var res *pipeline.Result
	if *batchFile != "" {
		batch, err := readBatch(*batchFile)
		if err != nil {
			return err
		}
		res, err = p.Render(text, batch, nil)
		if err != nil {
			return err
		}
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		res, err = p.Analyze(ctx, text)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resolveOutput{Resolved: res.Resolved, Dropped: res.Dropped, Report: res.Report}); err != nil {
		return err
	}
	if *rf.stats {
		printSummary(os.Stderr, res.Summary(len(text)))
	}
	return nil
}

func readBatch(path string) (detect.Batch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	var byName map[string][]detect.Detection
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	batch := make(detect.Batch, len(byName))
	for name, ds := range byName {
		c := detect.ParseCategory(name)
		batch[c] = append(batch[c], ds...)
	}
	return batch, nil
}

func readInput(args []string, file string, stdin io.Reader) (string, error) {
	switch {
	case len(args) > 0 && file != "":
		return "", errors.New("pass text as an argument or with --file, not both")
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case file != "" && file != "-":
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(raw), nil
	default:
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSuffix(string(raw), "\n"), nil
	}
}

func printSummary(w io.Writer, s stats.Summary) {
	fmt.Fprintln(w, "Run Summary")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Detections:   %d %s\n", s.Detections.Total, formatCounts(s.Detections.ByCategory))
	fmt.Fprintf(w, "Resolved:     %d (collisions %d, overrides %d, replaced %d, discarded %d)\n",
		s.Resolver.Resolved, s.Resolver.Collisions, s.Resolver.Overrides, s.Resolver.Replaced, s.Resolver.Discarded)
	fmt.Fprintf(w, "Highlighted:  %d %s\n", s.Highlighted.Total, formatCounts(s.Highlighted.ByCategory))
	fmt.Fprintf(w, "Coverage:     %.1f%%\n", s.Coverage*100)
	for _, d := range s.Dropped {
		fmt.Fprintf(w, "Dropped:      %s [%d,%d) %.2f\n", d.Category, d.Start, d.End, d.Confidence)
	}
	for _, t := range s.TopTypes {
		fmt.Fprintf(w, "Type:         %-20s %d\n", t.EntityType, t.Count)
	}
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(counts))
	for _, c := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", c, counts[c]))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
