package prompt

import (
	"fmt"
	"strings"

	"setka/internal/domain"
)

// OutputMode selects which variation set a portrait batch renders.
type OutputMode string

const (
	ModeAngles      OutputMode = "angles"
	ModeExpressions OutputMode = "expressions"
)

// VariationPreset is one item of a portrait batch.
type VariationPreset struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

var variations = map[OutputMode][]VariationPreset{
	ModeAngles: {
		{ID: "angle_1", Text: "A frontal view portrait (slightly different from the original)."},
		{ID: "angle_2", Text: "A 3/4 view portrait (slightly turned to the left)."},
		{ID: "angle_3", Text: "A side profile portrait (turned to the right)."},
		{ID: "angle_4", Text: "A portrait from a high angle, looking down (bird's-eye view)."},
		{ID: "angle_5", Text: "A 3/4 view portrait (slightly turned to the right)."},
		{ID: "angle_6", Text: "A side profile portrait (turned to the left)."},
		{ID: "angle_7", Text: "A portrait from a low angle, looking up (worm's-eye view)."},
		{ID: "angle_8", Text: "A portrait with the head slightly tilted to the side."},
		{ID: "angle_9", Text: "A portrait looking over the left shoulder."},
		{ID: "angle_10", Text: "A close-up portrait focusing on the face."},
	},
	ModeExpressions: {
		{ID: "expr_1", Text: "A portrait with a light, gentle smile."},
		{ID: "expr_2", Text: "A portrait with a wide, joyful smile."},
		{ID: "expr_3", Text: "A portrait showing a sad or melancholic expression."},
		{ID: "expr_4", Text: "A portrait with a surprised expression (mouth slightly open, eyebrows raised)."},
		{ID: "expr_5", Text: "A portrait with a thoughtful and pensive expression."},
		{ID: "expr_6", Text: "A portrait with a serious, neutral expression."},
		{ID: "expr_7", Text: "A portrait with a playful wink."},
		{ID: "expr_8", Text: "A portrait showing a confident and determined look."},
		{ID: "expr_9", Text: "A portrait that is laughing heartily."},
		{ID: "expr_10", Text: "A portrait showing an annoyed or grumpy expression."},
	},
}

// Variations returns a copy of the variation set for mode, or nil if unknown.
func Variations(mode OutputMode) []VariationPreset {
	list, ok := variations[mode]
	if !ok {
		return nil
	}
	return append([]VariationPreset(nil), list...)
}

// PortraitSelections is the portrait adapter form.
type PortraitSelections struct {
	Mode             OutputMode         `json:"mode" toml:"mode"`
	ShotType         string             `json:"shot_type" toml:"shot_type"`
	Clothing         string             `json:"clothing" toml:"clothing"`
	CustomClothing   string             `json:"custom_clothing" toml:"custom_clothing"`
	Background       string             `json:"background" toml:"background"`
	CustomBackground string             `json:"custom_background" toml:"custom_background"`
	AspectRatio      domain.AspectRatio `json:"aspect_ratio" toml:"aspect_ratio"`
}

// Normalize lowercases keys and applies the form defaults.
func (s *PortraitSelections) Normalize() {
	if s == nil {
		return
	}
	s.Mode = OutputMode(strings.TrimSpace(strings.ToLower(string(s.Mode))))
	if s.Mode == "" {
		s.Mode = ModeAngles
	}
	s.ShotType = strings.TrimSpace(strings.ToLower(s.ShotType))
	if s.ShotType == "" {
		s.ShotType = "waist_up"
	}
	s.Clothing = strings.TrimSpace(strings.ToLower(s.Clothing))
	if s.Clothing == "" {
		s.Clothing = "classic"
	}
	s.CustomClothing = strings.TrimSpace(s.CustomClothing)
	s.Background = strings.TrimSpace(strings.ToLower(s.Background))
	if s.Background == "" {
		s.Background = "studio_gray"
	}
	s.CustomBackground = strings.TrimSpace(s.CustomBackground)
	if s.AspectRatio == "" {
		s.AspectRatio = domain.DefaultAspectRatio
	}
}

// Validate rejects unknown keys.
func (s PortraitSelections) Validate() error {
	if _, ok := variations[s.Mode]; !ok {
		return invalid("mode", string(s.Mode))
	}
	if _, ok := shotTypes[s.ShotType]; !ok {
		return invalid("shot_type", s.ShotType)
	}
	if _, ok := clothing[s.Clothing]; !ok && s.Clothing != OptionCustom && s.Clothing != OptionUpload {
		return invalid("clothing", s.Clothing)
	}
	if _, ok := portraitBackgrounds[s.Background]; !ok && s.Background != OptionCustom && s.Background != OptionUpload {
		return invalid("background", s.Background)
	}
	if !s.AspectRatio.Valid() {
		return invalid("aspect_ratio", string(s.AspectRatio))
	}
	return nil
}

// UsesClothingImage reports whether clothing comes from an uploaded reference.
func (s PortraitSelections) UsesClothingImage() bool { return s.Clothing == OptionUpload }

// UsesBackgroundImage reports whether the background comes from an uploaded reference.
func (s PortraitSelections) UsesBackgroundImage() bool { return s.Background == OptionUpload }

// Clauses lists the parts of one portrait prompt for variation.
func (s PortraitSelections) Clauses(variation string) []Clause {
	var wear string
	switch s.Clothing {
	case OptionCustom:
		if s.CustomClothing != "" {
			wear = fmt.Sprintf("The person is wearing: %s.", s.CustomClothing)
		}
	case OptionUpload:
	default:
		wear = clothing[s.Clothing]
	}

	var scene string
	switch s.Background {
	case OptionCustom:
		scene = s.CustomBackground
	case OptionUpload:
	default:
		scene = portraitBackgrounds[s.Background]
	}

	var directive string
	if v := strings.TrimSpace(variation); v != "" {
		directive = fmt.Sprintf(`The new image should represent this specific variation: "%s"`, v)
	}

	return []Clause{
		On(GroupShot, shotTypes[s.ShotType]),
		On(GroupSubject, wear),
		On(GroupScene, scene),
		On(GroupAspect, aspectDirectives[s.AspectRatio]),
		On(GroupAspect, directive),
	}
}

// Portrait composes the prompt for one variation of an uploaded portrait.
func Portrait(s PortraitSelections, variation string) string {
	return Build(PortraitBase, s.Clauses(variation))
}
