package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"nerlight/internal/config"
	"nerlight/internal/detect"
	"nerlight/internal/logging"
	"nerlight/internal/pipeline"
	"nerlight/internal/resolve"
)

func main() {
	flag.Usage = func() { usage(os.Stderr) }
	flag.Parse()
	if flag.NArg() < 1 {
		usage(os.Stderr)
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	args := flag.Args()[1:]
	var err error
	switch cmd {
	case "annotate":
		err = annotateCommand(args, os.Stdin, os.Stdout)
	case "resolve":
		err = resolveCommand(args, os.Stdin, os.Stdout)
	case "model":
		err = modelCommand(args, os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	default:
		usage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("nerlight %s failed: %v", cmd, err)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nerlight [annotate|resolve|model list|model info <name>|model verify] [flags] [text]")
	fmt.Fprintln(w, "Text is read from the argument, --file, or stdin.")
}

func loadConfig() (config.Config, error) {
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return config.Config{}, err
	}
	if err := config.EnsureConfigDir(cfgPath); err != nil {
		return config.Config{}, err
	}
	return config.Load(cfgPath)
}

// runFlags are shared by the commands that run detectors.
type runFlags struct {
	file     *string
	format   *string
	policy   *string
	detector *string
	degrade  *bool
	stats    *bool
}

func addRunFlags(fs *flag.FlagSet) runFlags {
	return runFlags{
		file:     fs.String("file", "", "read text from file ('-' for stdin)"),
		format:   fs.String("format", "", "output format: html|terminal|redact"),
		policy:   fs.String("policy", "", "overlap policy: prefer|reject"),
		detector: fs.String("detector", "", "override every category's detector kind: regex|onnx|sidecar"),
		degrade:  fs.Bool("degrade", false, "skip failed detectors instead of aborting"),
		stats:    fs.Bool("stats", false, "print a run summary to stderr"),
	}
}

// apply layers command-line flags over the loaded config.
func (f runFlags) apply(cfg *config.Config) error {
	if *f.format != "" {
		cfg.Format = *f.format
	}
	if *f.policy != "" {
		cfg.OverlapPolicy = *f.policy
	}
	if *f.degrade {
		cfg.Degrade = true
	}
	if *f.detector != "" {
		for i := range cfg.Categories {
			cfg.Categories[i].Detector.Kind = *f.detector
		}
	}
	return cfg.Validate()
}

func buildPipeline(cfg config.Config, logger *log.Logger) (*pipeline.Pipeline, error) {
	detectors, err := detect.DetectorsFromSpecs(cfg.DetectorSpecs())
	if err != nil {
		return nil, err
	}
	policy, err := resolve.ParsePolicy(cfg.OverlapPolicy)
	if err != nil {
		return nil, err
	}
	format, err := pipeline.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return &pipeline.Pipeline{
		Runner: detect.Runner{
			Detectors: detectors,
			Config:    cfg.RunnerConfig(),
			Logger:    logger,
		},
		Policy:  policy,
		Palette: cfg.Palette(),
		Format:  format,
		Logger:  logger,
	}, nil
}

func newLogger(cfg config.Config) *log.Logger {
	return logging.New(os.Stderr, cfg.LogLevel)
}
