package main

import (
	"fmt"
	"io"
	"strings"

	"nerlight/internal/models"
)

func modelCommand(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: nerlight model [list|info|verify]")
	}
	registry, err := models.LoadEmbeddedRegistry()
	if err != nil {
		return err
	}
	cfg, err := loadConfigFunc()
	if err != nil {
		return err
	}
	root := cfg.ModelsRoot
	sub := args[0]
	subArgs := args[1:]
	switch sub {
	case "list":
		return modelList(stdout, registry, root)
	case "info":
		if len(subArgs) != 1 {
			return fmt.Errorf("usage: nerlight model info <name>")
		}
		return modelInfo(stdout, registry, root, subArgs[0])
	case "verify":
		return modelVerify(stdout, registry, root)
	default:
		return fmt.Errorf("unknown model subcommand %q", sub)
	}
}

func modelList(w io.Writer, registry models.Registry, root string) error {
	fmt.Fprintln(w, "Category Models")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "%-6s %-9s %-14s %-48s\n", "NAME", "CATEGORY", "STATUS", "SOURCE")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	installed := 0
	for _, m := range registry.Models {
		status := "not installed"
		if models.IsInstalled(root, m) {
			status = "installed"
			installed++
		}
		fmt.Fprintf(w, "%-6s %-9s %-14s %-48s\n", m.Name, m.Category, status, m.Source)
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "Installed: %d/%d models\n", installed, len(registry.Models))
	fmt.Fprintf(w, "\nModels are read from %s/<name>; export each one to ONNX with model.onnx, labels.json and tokenizer.json.\n", root)
	return nil
}

func modelInfo(w io.Writer, registry models.Registry, root, name string) error {
	m, ok := registry.Find(name)
	if !ok {
		return fmt.Errorf("model %q not found", name)
	}
	status := "Not installed"
	if models.IsInstalled(root, m) {
		status = "Installed"
	}
	fmt.Fprintf(w, "NER Model: %s\n", m.Name)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Status:         %s\n", status)
	fmt.Fprintf(w, "Category:       %s\n", m.Category)
	fmt.Fprintf(w, "Display Name:   %s\n", m.DisplayName)
	fmt.Fprintf(w, "Source:         %s\n", m.Source)
	fmt.Fprintf(w, "Language:       %s\n", m.Language)
	fmt.Fprintf(w, "Location:       %s\n", models.ModelInstallPath(root, m.Name))
	fmt.Fprintf(w, "Description:    %s\n", m.Description)
	fmt.Fprintf(w, "Entity Types:   %s\n", strings.Join(m.EntityTypes, ", "))
	fmt.Fprintf(w, "Architecture:   %s\n", m.Architecture)
	fmt.Fprintf(w, "License:        %s\n", m.License)
	return nil
}

func modelVerify(w io.Writer, registry models.Registry, root string) error {
	fmt.Fprintln(w, "Verifying installed models...")
	installed := 0
	failures := 0
	for _, m := range registry.Models {
		if !models.IsInstalled(root, m) {
			continue
		}
		installed++
		fmt.Fprintf(w, "\n%s (%s)\n", m.Name, m.Category)
		res, err := models.Verify(root, m)
		if err != nil {
			fmt.Fprintf(w, "  └─ Verify... ✗ (%v)\n", err)
			failures++
			continue
		}
		if res.Checksum != "" {
			fmt.Fprintln(w, "  ├─ Checksum... ✓")
		} else {
			fmt.Fprintln(w, "  ├─ Checksum... ? (no .checksum file)")
		}
		fmt.Fprintf(w, "  └─ Labels...   ✓ (%d)\n", res.Labels)
	}
	if installed == 0 {
		fmt.Fprintln(w, "\nNo installed models found")
		return nil
	}
	if failures > 0 {
		return fmt.Errorf("%d model(s) failed verification", failures)
	}
	fmt.Fprintln(w, "\nAll models verified")
	return nil
}
