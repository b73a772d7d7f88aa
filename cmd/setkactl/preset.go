package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"setka/internal/prompt"
)

// loadPreset decodes an expert form saved as TOML, for example:
//
//	prompt = "a lighthouse at dusk"
//	style_enabled = true
//	style = "photorealism"
//	aspect_ratio = "16:9"
//
//	[camera]
//	aperture = 2.8
//
// Unknown keys are rejected so typos do not silently fall back to defaults.
func loadPreset(path string) (prompt.ExpertSelections, error) {
	var sel prompt.ExpertSelections

	file, err := os.Open(path)
	if err != nil {
		return sel, fmt.Errorf("open preset: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file).DisallowUnknownFields()
	if err := dec.Decode(&sel); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return sel, fmt.Errorf("preset %s: unknown keys:\n%s", path, strings.TrimSpace(strict.String()))
		}
		return sel, fmt.Errorf("parse preset %s: %w", path, err)
	}
	return sel, nil
}
