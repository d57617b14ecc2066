package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nerlight/internal/config"
	"nerlight/internal/logging"
	"nerlight/internal/models"
)

func useConfig(t *testing.T, cfg config.Config) {
	t.Helper()
	old := loadConfigFunc
	loadConfigFunc = func() (config.Config, error) { return cfg, nil }
	t.Cleanup(func() { loadConfigFunc = old })
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.ModelsRoot = t.TempDir()
	return cfg
}

func TestAnnotateCommandHTML(t *testing.T) {
	useConfig(t, testConfig(t))
	var out bytes.Buffer
	if err := annotateCommand([]string{"Card", "4111111111111111", "ok"}, strings.NewReader(""), &out); err != nil {
		t.Fatalf("annotateCommand() error = %v", err)
	}
	want := `Card <mark data-category="PCI" style="background-color:#FFFFE0">4111111111111111</mark> ok` + "\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestAnnotateCommandReadsStdin(t *testing.T) {
	useConfig(t, testConfig(t))
	var out bytes.Buffer
	err := annotateCommand([]string{"--format", "redact"}, strings.NewReader("write to jane@example.com\n"), &out)
	if err != nil {
		t.Fatalf("annotateCommand() error = %v", err)
	}
	if out.String() != "write to [PII_1]\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestAnnotateCommandRejectsBadFormat(t *testing.T) {
	useConfig(t, testConfig(t))
	err := annotateCommand([]string{"--format", "pdf", "x"}, strings.NewReader(""), &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveCommandWithBatch(t *testing.T) {
	useConfig(t, testConfig(t))
	batch := `{
  "pii": [{"start": 5, "end": 21, "matched_text": "4111111111111111", "confidence": 0.9}],
  "PCI": [{"start": 5, "end": 21, "matched_text": "CREDITCARDNUMBER", "confidence": 0.4}]
}`
	path := filepath.Join(t.TempDir(), "batch.json")
	if err := os.WriteFile(path, []byte(batch), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := resolveCommand([]string{"--batch", path, "Card 4111111111111111 ok"}, strings.NewReader(""), &out); err != nil {
		t.Fatalf("resolveCommand() error = %v", err)
	}
	var got resolveOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(got.Resolved) != 1 || got.Resolved[0].Category != "PCI" || got.Resolved[0].Confidence != 0.9 {
		t.Fatalf("unexpected resolved spans: %+v", got.Resolved)
	}
	if got.Report.Overrides != 1 {
		t.Fatalf("unexpected report: %+v", got.Report)
	}
}

func TestReadInput(t *testing.T) {
	if _, err := readInput([]string{"a"}, "f.txt", strings.NewReader("")); err == nil {
		t.Fatal("expected error for arg and file")
	}
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("from file"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := readInput(nil, path, strings.NewReader(""))
	if err != nil || got != "from file" {
		t.Fatalf("readInput() = %q, %v", got, err)
	}
	got, err = readInput(nil, "-", strings.NewReader("piped\n"))
	if err != nil || got != "piped" {
		t.Fatalf("readInput() = %q, %v", got, err)
	}
}

func TestModelListAndInfo(t *testing.T) {
	reg, err := models.LoadEmbeddedRegistry()
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()

	var list bytes.Buffer
	if err := modelList(&list, reg, root); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(list.String(), "obi/deid_roberta_i2b2") || !strings.Contains(list.String(), "Installed: 0/3") {
		t.Fatalf("unexpected list output: %s", list.String())
	}

	var info bytes.Buffer
	if err := modelInfo(&info, reg, root, "PCI"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(info.String(), "NER Model: pci") || !strings.Contains(info.String(), "lakshyakh93/deberta_finetuned_pii") {
		t.Fatalf("unexpected info output: %s", info.String())
	}
	if err := modelInfo(&info, reg, root, "ner_en"); err == nil {
		t.Fatal("expected unknown model error")
	}
}

func TestModelVerifyDetectsInvalidLabels(t *testing.T) {
	reg := models.Registry{Models: []models.ModelSpec{{Name: "phi", Category: "PHI"}}}
	root := t.TempDir()
	dir := filepath.Join(root, "phi")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(dir, "model.onnx"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "labels.json"), []byte("not-json"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "tokenizer.json"), []byte("{}"), 0o644)

	var out bytes.Buffer
	if err := modelVerify(&out, reg, root); err == nil {
		t.Fatal("expected verification error")
	}
	if !strings.Contains(out.String(), "Verify... ✗") {
		t.Fatalf("expected failure line: %s", out.String())
	}
}

func TestPrintSummary(t *testing.T) {
	p, err := buildPipeline(testConfig(t), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	text := "MRN: 00123456"
	res, err := p.Analyze(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	printSummary(&buf, res.Summary(len(text)))
	if !strings.Contains(buf.String(), "Highlighted:  1 (PHI=1)") {
		t.Fatalf("unexpected summary: %s", buf.String())
	}
}
