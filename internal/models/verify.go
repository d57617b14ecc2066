package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"nerlight/internal/detect"
)

type VerifyResult struct {
	Model    string `json:"model"`
	Path     string `json:"path"`
	Labels   int    `json:"labels"`
	Checksum string `json:"checksum,omitempty"`
}

// Verify checks that an installed model has every required file, a
// readable label map and, when a .checksum file is present, a matching
// model.onnx digest.
func Verify(root string, model ModelSpec) (VerifyResult, error) {
	dir := ModelInstallPath(root, model.Name)
	res := VerifyResult{Model: model.Name, Path: dir}
	if err := ValidateModelDir(dir); err != nil {
		return res, err
	}
	labels, err := detect.LoadLabels(filepath.Join(dir, "labels.json"))
	if err != nil {
		return res, fmt.Errorf("model %s: load labels: %w", model.Name, err)
	}
	if len(labels) == 0 {
		return res, fmt.Errorf("model %s: labels.json is empty", model.Name)
	}
	res.Labels = len(labels)

	expected, err := os.ReadFile(filepath.Join(dir, ".checksum"))
	if errors.Is(err, os.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.Checksum = strings.TrimSpace(string(expected))
	if err := VerifyChecksum(filepath.Join(dir, "model.onnx"), res.Checksum); err != nil {
		return res, fmt.Errorf("model %s: %w", model.Name, err)
	}
	return res, nil
}

func VerifyChecksum(file, expected string) error {
	if strings.TrimSpace(expected) == "" {
		return fmt.Errorf("checksum missing")
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	actual := "sha256:" + hex.EncodeToString(h.Sum(nil))
	if actual != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
