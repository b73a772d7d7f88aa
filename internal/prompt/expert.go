package prompt

import (
	"fmt"
	"strings"

	"setka/internal/domain"
)

// Camera holds the manual exposure settings of the expert form.
type Camera struct {
	Aperture     float64 `json:"aperture" toml:"aperture"`
	ShutterSpeed string  `json:"shutter_speed" toml:"shutter_speed"`
	ISO          string  `json:"iso" toml:"iso"`
	FocalLength  int     `json:"focal_length" toml:"focal_length"`
}

// DefaultCamera mirrors the form's initial slider positions.
var DefaultCamera = Camera{Aperture: 2.8, ShutterSpeed: "1/125s", ISO: "100", FocalLength: 50}

func (c Camera) describe() string {
	return fmt.Sprintf("shot on a camera with settings: aperture f/%.1f, shutter speed %s, ISO %s, focal length %dmm",
		c.Aperture, c.ShutterSpeed, c.ISO, c.FocalLength)
}

// ExpertSelections is the full text-to-image form.
type ExpertSelections struct {
	Prompt string `json:"prompt" toml:"prompt"`

	StyleEnabled bool   `json:"style_enabled" toml:"style_enabled"`
	Style        string `json:"style" toml:"style"`
	CustomStyle  string `json:"custom_style" toml:"custom_style"`

	CameraEnabled bool   `json:"camera_enabled" toml:"camera_enabled"`
	Camera        Camera `json:"camera" toml:"camera"`

	LightingEnabled bool   `json:"lighting_enabled" toml:"lighting_enabled"`
	Lighting        string `json:"lighting" toml:"lighting"`
	CustomLighting  string `json:"custom_lighting" toml:"custom_lighting"`

	EffectsEnabled bool   `json:"effects_enabled" toml:"effects_enabled"`
	FilmGrain      string `json:"film_grain" toml:"film_grain"`
	Blur           string `json:"blur" toml:"blur"`
	Vignette       string `json:"vignette" toml:"vignette"`

	NegativeEnabled bool   `json:"negative_enabled" toml:"negative_enabled"`
	NegativePrompt  string `json:"negative_prompt" toml:"negative_prompt"`

	AspectDirective bool               `json:"aspect_directive" toml:"aspect_directive"`
	AspectRatio     domain.AspectRatio `json:"aspect_ratio" toml:"aspect_ratio"`
}

// Normalize trims free text and fills defaults for unset values.
func (s *ExpertSelections) Normalize() {
	if s == nil {
		return
	}
	s.Prompt = strings.TrimSpace(s.Prompt)
	s.Style = strings.TrimSpace(strings.ToLower(s.Style))
	s.CustomStyle = strings.TrimSpace(s.CustomStyle)
	s.Lighting = strings.TrimSpace(strings.ToLower(s.Lighting))
	s.CustomLighting = strings.TrimSpace(s.CustomLighting)
	s.NegativePrompt = strings.TrimSpace(s.NegativePrompt)
	s.FilmGrain = orNone(s.FilmGrain)
	s.Blur = orNone(s.Blur)
	s.Vignette = orNone(s.Vignette)
	if s.Camera.Aperture == 0 {
		s.Camera.Aperture = DefaultCamera.Aperture
	}
	if s.Camera.ShutterSpeed == "" {
		s.Camera.ShutterSpeed = DefaultCamera.ShutterSpeed
	}
	if s.Camera.ISO == "" {
		s.Camera.ISO = DefaultCamera.ISO
	}
	if s.Camera.FocalLength == 0 {
		s.Camera.FocalLength = DefaultCamera.FocalLength
	}
	if s.AspectRatio == "" {
		s.AspectRatio = domain.DefaultAspectRatio
	}
}

// Validate rejects keys the catalogs do not know and out-of-range camera values.
func (s ExpertSelections) Validate() error {
	if s.StyleEnabled {
		if _, ok := photoStyles[s.Style]; !ok && s.Style != OptionCustom && s.Style != OptionUpload {
			return invalid("style", s.Style)
		}
	}
	if s.LightingEnabled {
		if _, ok := lightingStyles[s.Lighting]; !ok && s.Lighting != OptionCustom {
			return invalid("lighting", s.Lighting)
		}
	}
	if s.EffectsEnabled {
		if _, ok := filmGrain[s.FilmGrain]; !ok {
			return invalid("film_grain", s.FilmGrain)
		}
		if _, ok := blurEffects[s.Blur]; !ok {
			return invalid("blur", s.Blur)
		}
		if _, ok := vignettes[s.Vignette]; !ok {
			return invalid("vignette", s.Vignette)
		}
	}
	if s.CameraEnabled {
		c := s.Camera
		if c.Aperture < MinAperture || c.Aperture > MaxAperture {
			return fmt.Errorf("%w: aperture f/%.1f out of range", domain.ErrInvalidSelection, c.Aperture)
		}
		if c.FocalLength < MinFocalLength || c.FocalLength > MaxFocalLength {
			return fmt.Errorf("%w: focal length %dmm out of range", domain.ErrInvalidSelection, c.FocalLength)
		}
		if !contains(shutterSpeeds, c.ShutterSpeed) {
			return invalid("shutter_speed", c.ShutterSpeed)
		}
		if !contains(isoValues, c.ISO) {
			return invalid("iso", c.ISO)
		}
	}
	if !s.AspectRatio.Valid() {
		return invalid("aspect_ratio", string(s.AspectRatio))
	}
	return nil
}

// UsesStyleImage reports whether the style comes from an uploaded reference.
func (s ExpertSelections) UsesStyleImage() bool {
	return s.StyleEnabled && s.Style == OptionUpload
}

// Clauses lists the optional parts of the expert prompt.
func (s ExpertSelections) Clauses() []Clause {
	style := photoStyles[s.Style]
	if s.Style == OptionCustom && s.CustomStyle != "" {
		style = "in the style of " + s.CustomStyle
	}
	lighting := lightingStyles[s.Lighting]
	if s.Lighting == OptionCustom && s.CustomLighting != "" {
		lighting = "with " + s.CustomLighting + " lighting"
	}
	return []Clause{
		When(s.StyleEnabled, GroupScene, style),
		When(s.CameraEnabled, GroupCapture, s.Camera.describe()),
		When(s.LightingEnabled, GroupCapture, lighting),
		When(s.EffectsEnabled, GroupEffects, filmGrain[s.FilmGrain]),
		When(s.EffectsEnabled, GroupEffects, blurEffects[s.Blur]),
		When(s.EffectsEnabled, GroupEffects, vignettes[s.Vignette]),
		When(s.AspectDirective, GroupAspect, aspectDirectives[s.AspectRatio]),
		When(s.NegativeEnabled, GroupNegative, s.NegativePrompt),
	}
}

// Expert composes the text-to-image prompt from the expert form.
func Expert(s ExpertSelections) string {
	return Build(s.Prompt, s.Clauses())
}

func orNone(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return NoPreference
	}
	return v
}

func invalid(field, value string) error {
	return fmt.Errorf("%w: unknown %s %q", domain.ErrInvalidSelection, field, value)
}
