package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nerlight/internal/annotate"
	"nerlight/internal/detect"
)

const (
	defaultModelsRoot = "~/.nerlight/models"
	defaultFormat     = "html"
	defaultLogLevel   = "info"
	defaultPolicy     = "prefer"
)

type DetectorConfig struct {
	Kind      string `yaml:"kind" json:"kind" validate:"omitempty,oneof=regex onnx sidecar"`
	ModelDir  string `yaml:"model_dir" json:"model_dir"`
	Model     string `yaml:"model" json:"model"`
	URL       string `yaml:"url" json:"url" validate:"omitempty,url"`
	TimeoutMS int    `yaml:"timeout_ms" json:"timeout_ms" validate:"gte=0"`
	MaxBytes  int    `yaml:"max_bytes" json:"max_bytes" validate:"gte=0"`
}

type CategoryConfig struct {
	Name     string         `yaml:"name" json:"name" validate:"required"`
	Color    string         `yaml:"color" json:"color" validate:"omitempty,hexcolor"`
	Detector DetectorConfig `yaml:"detector" json:"detector"`
}

type RunnerConfig struct {
	MinScore  float64 `yaml:"min_score" json:"min_score" validate:"gte=0,lte=1"`
	TimeoutMS int     `yaml:"timeout_ms" json:"timeout_ms" validate:"gte=0"`
	MaxBytes  int     `yaml:"max_bytes" json:"max_bytes" validate:"gte=0"`
}

type Config struct {
	Categories    []CategoryConfig `yaml:"categories" json:"categories" validate:"dive"`
	Runner        RunnerConfig     `yaml:"runner" json:"runner"`
	OverlapPolicy string           `yaml:"overlap_policy" json:"overlap_policy" validate:"oneof=prefer reject"`
	Degrade       bool             `yaml:"degrade" json:"degrade"`
	Format        string           `yaml:"format" json:"format" validate:"oneof=html terminal redact"`
	LogLevel      string           `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	ModelsRoot    string           `yaml:"models_root" json:"models_root"`
	// SidecarURL is used by sidecar detectors that do not set their own url.
	SidecarURL string `yaml:"sidecar_url" json:"sidecar_url" validate:"omitempty,url"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Default() Config {
	return Config{
		Categories: []CategoryConfig{
			{Name: "PII", Color: "#ADD8E6", Detector: DetectorConfig{Kind: detect.KindRegex}},
			{Name: "PCI", Color: "#FFFFE0", Detector: DetectorConfig{Kind: detect.KindRegex}},
			{Name: "PHI", Color: "#FFC0CB", Detector: DetectorConfig{Kind: detect.KindRegex}},
		},
		OverlapPolicy: defaultPolicy,
		Format:        defaultFormat,
		LogLevel:      defaultLogLevel,
		ModelsRoot:    defaultModelsRoot,
	}
}

func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nerlight", "config.yaml"), nil
}

// Load reads the config file at path, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		cfg.Categories = nil
		if err := parseConfig(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	env, err := Environ(".env")
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Environ returns the process environment layered over the variables in
// envFile. Variables already set in the process win. A missing envFile is
// not an error.
func Environ(envFile string) (map[string]string, error) {
	out := map[string]string{}
	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
		for k, v := range fileVars {
			out[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out, nil
}

// ApplyEnv overrides config fields from NERLIGHT_* variables.
func (c *Config) ApplyEnv(env map[string]string) error {
	get := func(key string) (string, bool) {
		v, ok := env[key]
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("NERLIGHT_SIDECAR_URL"); ok {
		c.SidecarURL = strings.TrimRight(v, "/")
	}
	if v, ok := get("NERLIGHT_FORMAT"); ok {
		c.Format = strings.ToLower(v)
	}
	if v, ok := get("NERLIGHT_LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := get("NERLIGHT_OVERLAP_POLICY"); ok {
		c.OverlapPolicy = strings.ToLower(v)
	}
	if v, ok := get("NERLIGHT_DEGRADE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid NERLIGHT_DEGRADE: %s", v)
		}
		c.Degrade = b
	}
	if v, ok := get("NERLIGHT_MODELS_ROOT"); ok {
		c.ModelsRoot = v
	}
	return nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config: %s failed %s (%v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := map[detect.Category]bool{}
	for _, cat := range c.Categories {
		name := detect.ParseCategory(cat.Name)
		if seen[name] {
			return fmt.Errorf("invalid config: category %s listed twice", name)
		}
		seen[name] = true
		if cat.Detector.Kind == detect.KindSidecar && cat.Detector.URL == "" && c.SidecarURL == "" {
			return fmt.Errorf("invalid config: category %s uses a sidecar detector but no url is set", name)
		}
	}
	return nil
}

// DetectorSpecs turns the category list into detector specs. An onnx
// detector without a model_dir looks in models_root/<category>.
func (c Config) DetectorSpecs() []detect.Spec {
	out := make([]detect.Spec, 0, len(c.Categories))
	for _, cat := range c.Categories {
		name := detect.ParseCategory(cat.Name)
		d := cat.Detector
		spec := detect.Spec{
			Category: name,
			Kind:     d.Kind,
			ModelDir: expandHome(d.ModelDir),
			URL:      d.URL,
			Model:    d.Model,
			Timeout:  time.Duration(d.TimeoutMS) * time.Millisecond,
			MaxBytes: d.MaxBytes,
		}
		if spec.Kind == detect.KindONNX && spec.ModelDir == "" {
			spec.ModelDir = filepath.Join(expandHome(c.ModelsRoot), strings.ToLower(name.String()))
		}
		if spec.Kind == detect.KindSidecar && spec.URL == "" {
			spec.URL = c.SidecarURL
		}
		out = append(out, spec)
	}
	return out
}

func (c Config) RunnerConfig() detect.RunnerConfig {
	return detect.RunnerConfig{
		MinScore: c.Runner.MinScore,
		Timeout:  time.Duration(c.Runner.TimeoutMS) * time.Millisecond,
		MaxBytes: c.Runner.MaxBytes,
		Degrade:  c.Degrade,
	}
}

// Palette starts from the default colors and applies every configured one.
func (c Config) Palette() annotate.Palette {
	p := annotate.DefaultPalette()
	for _, cat := range c.Categories {
		if cat.Color != "" {
			p = p.With(detect.ParseCategory(cat.Name), strings.ToUpper(cat.Color))
		}
	}
	return p
}

func (c *Config) normalize() {
	if c.OverlapPolicy == "" {
		c.OverlapPolicy = defaultPolicy
	}
	if c.Format == "" {
		c.Format = defaultFormat
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.ModelsRoot == "" {
		c.ModelsRoot = defaultModelsRoot
	}
	c.ModelsRoot = expandHome(c.ModelsRoot)
	if len(c.Categories) == 0 {
		c.Categories = Default().Categories
	}
}

func parseConfig(data []byte, cfg *Config) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse json config: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml config: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
