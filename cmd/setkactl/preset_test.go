package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"setka/internal/domain"
)

func writePreset(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preset.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestLoadPreset(t *testing.T) {
	path := writePreset(t, `
prompt = "a lighthouse at dusk"
style_enabled = true
style = "photorealism"
camera_enabled = true
aspect_ratio = "16:9"

[camera]
aperture = 1.8
focal_length = 85
`)

	sel, err := loadPreset(path)
	if err != nil {
		t.Fatalf("loadPreset: %v", err)
	}
	if sel.Prompt != "a lighthouse at dusk" || !sel.StyleEnabled || sel.Style != "photorealism" {
		t.Fatalf("unexpected selections: %+v", sel)
	}
	if sel.Camera.Aperture != 1.8 || sel.Camera.FocalLength != 85 {
		t.Fatalf("camera = %+v", sel.Camera)
	}
	if sel.AspectRatio != domain.AspectRatio("16:9") {
		t.Fatalf("aspect = %q", sel.AspectRatio)
	}

	sel.Normalize()
	if err := sel.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadPresetRejectsUnknownKeys(t *testing.T) {
	path := writePreset(t, "prompt = \"x\"\nstyel = \"anime\"\n")

	_, err := loadPreset(path)
	if err == nil {
		t.Fatal("expected an error for a misspelled key")
	}
	if !strings.Contains(err.Error(), "styel") {
		t.Fatalf("error should name the key: %v", err)
	}
}

func TestLoadPresetErrors(t *testing.T) {
	if _, err := loadPreset(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if _, err := loadPreset(writePreset(t, "prompt = ")); err == nil {
		t.Fatal("expected a parse error")
	}
}
