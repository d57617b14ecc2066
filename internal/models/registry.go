package models

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"nerlight/internal/detect"
)

//go:embed registry.yaml
var embeddedRegistry []byte

// RequiredFiles must all be present in an installed model directory.
var RequiredFiles = []string{"model.onnx", "labels.json", "tokenizer.json"}

type Registry struct {
	Version string      `yaml:"version" json:"version"`
	Models  []ModelSpec `yaml:"models" json:"models"`
}

type ModelSpec struct {
	Name         string          `yaml:"name" json:"name"`
	Category     detect.Category `yaml:"category" json:"category"`
	DisplayName  string          `yaml:"display_name" json:"display_name"`
	Source       string          `yaml:"source" json:"source"`
	Architecture string          `yaml:"architecture" json:"architecture"`
	Language     string          `yaml:"language" json:"language"`
	License      string          `yaml:"license" json:"license"`
	Description  string          `yaml:"description" json:"description"`
	EntityTypes  []string        `yaml:"entity_types" json:"entity_types"`
	Recommended  bool            `yaml:"recommended" json:"recommended"`
}

func LoadEmbeddedRegistry() (Registry, error) {
	return parseRegistry(embeddedRegistry)
}

func parseRegistry(data []byte) (Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return Registry{}, fmt.Errorf("parse model registry: %w", err)
	}
	for i := range reg.Models {
		reg.Models[i].Category = detect.ParseCategory(reg.Models[i].Category.String())
	}
	sort.Slice(reg.Models, func(i, j int) bool { return reg.Models[i].Name < reg.Models[j].Name })
	return reg, nil
}

// Find looks a model up by name, category or source id.
func (r Registry) Find(name string) (ModelSpec, bool) {
	name = strings.TrimSpace(name)
	for _, m := range r.Models {
		if m.Name == strings.ToLower(name) || m.Source == name || m.Category == detect.ParseCategory(name) {
			return m, true
		}
	}
	return ModelSpec{}, false
}

func ModelInstallPath(root string, name string) string {
	return filepath.Join(root, name)
}

func IsInstalled(root string, model ModelSpec) bool {
	return ValidateModelDir(ModelInstallPath(root, model.Name)) == nil
}

// ValidateModelDir reports the first required file missing from dir.
func ValidateModelDir(dir string) error {
	for _, f := range RequiredFiles {
		info, err := os.Stat(filepath.Join(dir, f))
		if err != nil {
			return fmt.Errorf("model dir %s: missing %s", dir, f)
		}
		if info.IsDir() {
			return fmt.Errorf("model dir %s: %s is a directory", dir, f)
		}
	}
	return nil
}
