package prompt

import (
	"fmt"
	"strings"
)

// EditingFallback is used when no adjustment was selected.
const EditingFallback = "Slightly enhance the provided image, improving quality without changing the content."

// Adjustments are the editor sliders, in percent. Contrast and saturation
// are neutral at 100, every other slider at 0.
type Adjustments struct {
	Grain      int `json:"grain" toml:"grain"`
	Blur       int `json:"blur" toml:"blur"`
	Contrast   int `json:"contrast" toml:"contrast"`
	Brightness int `json:"brightness" toml:"brightness"`
	Saturation int `json:"saturation" toml:"saturation"`
	Sharpness  int `json:"sharpness" toml:"sharpness"`
	Vignette   int `json:"vignette" toml:"vignette"`
}

// NeutralAdjustments leaves the image untouched.
var NeutralAdjustments = Adjustments{Contrast: 100, Saturation: 100}

// EditingSelections is the editor form.
type EditingSelections struct {
	SettingsEnabled bool        `json:"settings_enabled" toml:"settings_enabled"`
	Adjustments     Adjustments `json:"adjustments" toml:"adjustments"`
	StyleEnabled    bool        `json:"style_enabled" toml:"style_enabled"`
	Style           string      `json:"style" toml:"style"`
	CustomStyle     string      `json:"custom_style" toml:"custom_style"`
}

// Normalize trims the style fields.
func (s *EditingSelections) Normalize() {
	if s == nil {
		return
	}
	s.Style = strings.TrimSpace(strings.ToLower(s.Style))
	s.CustomStyle = strings.TrimSpace(s.CustomStyle)
}

// Validate checks slider ranges and the style key.
func (s EditingSelections) Validate() error {
	if s.SettingsEnabled {
		a := s.Adjustments
		checks := []struct {
			name     string
			v        int
			min, max int
		}{
			{"grain", a.Grain, 0, 100},
			{"blur", a.Blur, 0, 100},
			{"contrast", a.Contrast, 0, 200},
			{"brightness", a.Brightness, -100, 100},
			{"saturation", a.Saturation, 0, 200},
			{"sharpness", a.Sharpness, 0, 100},
			{"vignette", a.Vignette, 0, 100},
		}
		for _, c := range checks {
			if c.v < c.min || c.v > c.max {
				return invalid(c.name, fmt.Sprint(c.v))
			}
		}
	}
	if s.StyleEnabled {
		if _, ok := editingStyles[s.Style]; !ok && s.Style != OptionCustom && s.Style != OptionUpload {
			return invalid("style", s.Style)
		}
	}
	return nil
}

// UsesStyleImage reports whether the style comes from an uploaded reference.
func (s EditingSelections) UsesStyleImage() bool {
	return s.StyleEnabled && s.Style == OptionUpload
}

// Editing composes the instruction for editing an existing image.
func Editing(s EditingSelections) string {
	var parts []string
	if s.SettingsEnabled {
		a := s.Adjustments
		if a.Grain > 0 {
			parts = append(parts, fmt.Sprintf("add %d%% film grain", a.Grain))
		}
		if a.Blur > 0 {
			parts = append(parts, fmt.Sprintf("apply %d%% blur", a.Blur))
		}
		if a.Contrast != 100 {
			parts = append(parts, fmt.Sprintf("set contrast to %d%%", a.Contrast))
		}
		if a.Brightness != 0 {
			parts = append(parts, fmt.Sprintf("adjust brightness by %d%%", a.Brightness))
		}
		if a.Saturation != 100 {
			parts = append(parts, fmt.Sprintf("set saturation to %d%%", a.Saturation))
		}
		if a.Sharpness > 0 {
			parts = append(parts, fmt.Sprintf("increase sharpness by %d%%", a.Sharpness))
		}
		if a.Vignette > 0 {
			parts = append(parts, fmt.Sprintf("add a %d%% vignette", a.Vignette))
		}
	}
	if s.StyleEnabled {
		switch s.Style {
		case OptionCustom:
			if s.CustomStyle != "" {
				parts = append(parts, "apply this style: "+s.CustomStyle)
			}
		case OptionUpload:
		default:
			if text := editingStyles[s.Style]; text != "" {
				parts = append(parts, tidy(text))
			}
		}
	}
	if len(parts) == 0 {
		return EditingFallback
	}
	return "Edit the provided image. " + strings.Join(parts, ", ") + "."
}
