package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"nerlight/internal/config"
	"nerlight/internal/detect"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("test-ner", flag.ContinueOnError)
	category := fs.String("category", "PII", "category whose detector to run")
	kind := fs.String("kind", "", "detector kind override: regex|onnx|sidecar")
	timeout := fs.Duration("timeout", 10*time.Second, "detection timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() < 1 {
		fmt.Println("Usage: test-ner [--category PII|PCI|PHI] [--kind regex|onnx|sidecar] <text>")
		fmt.Println("Example: test-ner --category PCI \"Card 4111111111111111 expires 12/27\"")
		return 1
	}
	text := fs.Arg(0)

	spec, err := specFor(detect.ParseCategory(*category), *kind)
	if err != nil {
		log.Errorf("test-ner: %v", err)
		return 1
	}
	detector, err := detect.NewDetector(spec)
	if err != nil {
		log.Errorf("test-ner: %v", err)
		return 1
	}

	fmt.Printf("=== %s NER Test (%s) ===\n", spec.Category, kindLabel(spec.Kind))
	fmt.Printf("Text: %q\n\n", text)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	found, err := detector.Detect(ctx, text)
	duration := time.Since(start)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("\nTroubleshooting:")
		fmt.Println("- onnx: check the model directory with 'nerlight model verify'")
		fmt.Println("- onnx without the onnxruntime build tag: pip3 install onnxruntime numpy")
		fmt.Println("- sidecar: set NERLIGHT_SIDECAR_URL and make sure the service is up")
		return 1
	}

	fmt.Printf("OK: detection completed in %v\n", duration)
	fmt.Printf("Found %d detections:\n\n", len(found))
	if len(found) == 0 {
		return 0
	}

	fmt.Printf("%-5s %-18s %-30s %-6s %-6s %-8s\n", "#", "Type", "Text", "Start", "End", "Score")
	fmt.Println("───────────────────────────────────────────────────────────────────────────────")
	for i, d := range found {
		matched := d.MatchedText
		if len(matched) > 28 {
			matched = matched[:25] + "..."
		}
		fmt.Printf("%-5d %-18s %-30s %-6d %-6d %.2f\n", i+1, d.EntityType, matched, d.Start, d.End, d.Confidence)
	}

	fmt.Println("\nJSON Output:")
	jsonData, _ := json.MarshalIndent(found, "", "  ")
	fmt.Println(string(jsonData))
	return 0
}

// specFor picks the configured detector for c, falling back to the regex
// detector when the category is not configured.
func specFor(c detect.Category, kind string) (detect.Spec, error) {
	spec := detect.Spec{Category: c, Kind: detect.KindRegex}
	path, err := config.ConfigPath()
	if err != nil {
		return spec, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return spec, err
	}
	for _, s := range cfg.DetectorSpecs() {
		if s.Category == c {
			spec = s
		}
	}
	if kind != "" {
		spec.Kind = kind
		if kind == detect.KindONNX && spec.ModelDir == "" {
			spec.ModelDir = filepath.Join(cfg.ModelsRoot, strings.ToLower(c.String()))
		}
		if kind == detect.KindSidecar && spec.URL == "" {
			spec.URL = cfg.SidecarURL
		}
	}
	return spec, nil
}

func kindLabel(kind string) string {
	if kind == "" {
		return detect.KindRegex
	}
	return kind
}
