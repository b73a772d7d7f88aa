package prompt

import (
	"fmt"
	"strings"

	"setka/internal/domain"
)

// AvatarStage selects what an avatar batch renders.
type AvatarStage string

const (
	// AvatarFace renders a new studio face from the trait form.
	AvatarFace AvatarStage = "face"
	// AvatarEmotion redraws an uploaded face with one emotion.
	AvatarEmotion AvatarStage = "emotion"
	// AvatarPose renders every prompt of a pose set from an uploaded face.
	AvatarPose AvatarStage = "pose"
)

const (
	avatarBase     = "masterpiece, highest quality, png format"
	avatarBackdrop = "on a solid neutral gray studio background"
	avatarDetail   = "8k, ultra-high detail"
	avatarCamera   = "professional DSLR photograph, cinematic soft lighting, sharp focus"
	avatarChange   = `CRITICAL: The face must perfectly match the reference image. Now, apply this specific change: "%s"`
)

var avatarShots = map[string]string{
	"close_up":  "A centered, head-on (en face) extreme close-up studio portrait, tightly cropped from the top of the head to the bottom of the chin. Focus on showing only the head and neck, without shoulders, clothing, or other body parts in the frame",
	"chest_up":  "A head and shoulders studio portrait photo, showing the person from the chest up",
	"waist_up":  "A medium shot studio portrait photo of the person from the waist up",
	"knee_up":   "A medium-long shot studio portrait photo of the person from the knees up",
	"full_body": "A full-body shot studio portrait photo of the person, showing them standing from head to toe, barefoot",
}

// avatarLegShots show enough of the body to need bottoms.
var avatarLegShots = map[string]bool{"waist_up": true, "knee_up": true, "full_body": true}

type avatarOutfit struct {
	noun, top, bottoms string
}

var avatarGenders = map[string]avatarOutfit{
	"female": {noun: "a woman", top: "a gray cropped tank top with thin straps", bottoms: "gray sports bikini bottoms"},
	"male":   {noun: "a man", top: "a simple plain gray tank top", bottoms: "tight-fitting gray sports shorts"},
}

var avatarEthnicities = map[string]string{
	"nordic":          "Northern European (Scandinavian)",
	"mediterranean":   "Southern European (Mediterranean)",
	"slavic":          "Eastern European (Slavic)",
	"east_asian":      "East Asian (Chinese, Korean, Japanese)",
	"southeast_asian": "Southeast Asian (Vietnamese, Thai)",
	"south_asian":     "South Asian (Indian, Pakistani)",
	"middle_eastern":  "Middle Eastern (Arab, Persian)",
	"african":         "African / African American",
	"latino":          "Latin American",
	"mixed":           "mixed",
}

var avatarAges = map[string]string{
	"teen":        "teenager (16-19)",
	"young_adult": "young adult (20-29)",
	"adult":       "adult (30-39)",
	"middle_aged": "middle-aged (40-55)",
	"senior":      "senior (60+)",
}

var avatarSkinTones = map[string]string{
	"porcelain":   "very fair porcelain skin",
	"fair":        "fair European skin",
	"freckled":    "fair skin with freckles",
	"olive":       "olive Mediterranean skin",
	"light_brown": "light brown skin",
	"brown":       "brown skin",
	"dark_brown":  "dark brown skin",
	"very_dark":   "very dark skin",
}

var avatarFaceShapes = map[string]string{
	"oval":            "oval face",
	"round":           "round face",
	"square":          "square face with a strong jaw",
	"oblong":          "oblong, elongated face",
	"heart":           "heart-shaped face with a narrow chin",
	"diamond":         "diamond-shaped face",
	"pear":            "pear-shaped face",
	"v_shape":         "V-shaped face with a pointed chin",
	"high_cheekbones": "face with high cheekbones",
	"soft":            "soft, youthful face",
}

var avatarEyeShapes = map[string]string{
	"almond":     "almond-shaped eyes",
	"round":      "round eyes",
	"deep_set":   "deep-set eyes",
	"cat":        "cat eyes with lifted outer corners",
	"downturned": "downturned eyes",
	"hooded":     "hooded eyes",
	"close_set":  "close-set eyes",
	"wide_set":   "wide-set eyes",
	"monolid":    "eyes with an epicanthic fold",
}

var avatarEyeColors = map[string]string{
	"brown":      "brown eyes",
	"dark_brown": "dark brown, almost black eyes",
	"amber":      "light brown amber eyes",
	"blue":       "blue eyes",
	"gray":       "gray eyes",
	"green":      "green eyes",
	"hazel":      "hazel green-brown eyes",
	"gray_blue":  "gray-blue eyes",
}

var avatarNoseShapes = map[string]string{
	"straight":   "straight nose",
	"greek":      "Greek nose in a straight line with the forehead",
	"roman":      "Roman nose with a bump",
	"upturned":   "upturned nose",
	"aquiline":   "aquiline, downward-hooked nose",
	"wide":       "wide Nubian nose",
	"narrow":     "narrow nose",
	"bulbous":    "bulbous nose with a wide, rounded tip",
	"low_bridge": "nose with a low nasal bridge",
}

var avatarLipShapes = map[string]string{
	"full":       "full lips",
	"thin":       "thin lips",
	"bow":        "bow-shaped lips with a defined Cupid's bow",
	"wide":       "wide lips",
	"narrow":     "narrow lips, small mouth",
	"downturned": "lips with downturned corners",
	"soft":       "soft lips without a defined outline",
}

var avatarHairColors = map[string]string{
	"black":          "black hair",
	"dark_chestnut":  "dark chestnut hair",
	"chestnut":       "chestnut hair",
	"light_chestnut": "light chestnut hair",
	"ash_blonde":     "ash blonde hair",
	"golden_blonde":  "golden blonde hair",
	"platinum":       "platinum blonde hair",
	"copper":         "copper red hair",
	"gray":           "gray hair",
}

var avatarHairLengths = map[string]string{
	"shaved":         "shaved head",
	"buzz":           "very short buzz cut",
	"short":          "short haircut to the ears",
	"shoulder":       "shoulder-length hair",
	"shoulder_blade": "hair down to the shoulder blades",
	"long":           "long hair below the shoulder blades",
	"receding":       "M-shaped receding hairline",
}

var avatarHairTextures = map[string]string{
	"straight":   "straight hair",
	"wavy":       "wavy hair",
	"curly":      "curly hair with large curls",
	"coily":      "tight small curls",
	"afro":       "afro-textured hair",
	"dreadlocks": "dreadlocks",
}

var avatarFacialHair = map[string]string{
	"clean_shaven": "clean-shaven",
	"stubble":      "light three-day stubble",
	"short_beard":  "short, well-groomed beard",
	"long_beard":   "long beard",
	"mustache":     "mustache",
	"goatee":       "goatee",
}

var avatarExpressions = map[string]string{
	"neutral":     "neutral, calm expression",
	"light_smile": "light, friendly smile",
	"wide_smile":  "wide, happy smile",
	"serious":     "serious expression",
	"thoughtful":  "thoughtful expression",
	"confident":   "confident expression with a smirk",
}

var avatarEmotions = map[string]string{
	"neutral":     "A portrait with a neutral, calm expression.",
	"light_smile": "A portrait with a light, gentle smile.",
	"wide_smile":  "A portrait with a wide, joyful smile showing teeth.",
	"laughing":    "A portrait that is laughing heartily.",
	"surprised":   "A portrait with a surprised expression (mouth slightly open, eyebrows raised).",
	"angry":       "A portrait showing an angry expression, with furrowed brows and a tense jaw.",
	"furious":     "A portrait showing a furious, rage-filled expression.",
	"shouting":    "A portrait of the person shouting or screaming with their mouth wide open.",
	"crying":      "A portrait of the person crying, with visible tears on their face.",
}

var avatarPoseSets = map[string][]VariationPreset{
	"head_turn": {
		{ID: "angle_right_60", Text: "The person keeps their body still, facing forward, but performs a strong, clear turn of their head 60 degrees to the right. The side profile of their face, including the jawline and right ear, should be prominent. Their gaze must follow the direction of the turn. This is a distinct rotation of the entire head, not just the eyes."},
		{ID: "angle_left_60", Text: "The person keeps their body still, facing forward, but performs a strong, clear turn of their head 60 degrees to the left. The side profile of their face, including the jawline and left ear, should be prominent. Their gaze must follow the direction of the turn. This is a distinct rotation of the entire head, not just the eyes."},
	},
	"head_tilt": {
		{ID: "tilt_down_strong", Text: "The person strongly tilts their head down, chin towards chest, and also slightly turns their head to the side, looking down."},
		{ID: "tilt_up_strong", Text: "The person strongly raises their head up, chin high, their gaze directed upwards."},
	},
	"camera_height": {
		{ID: "view_from_below", Text: "Low-angle shot. The camera is positioned very low, at the person's waist level, and is pointing upwards. The person is looking down directly into the camera lens."},
		{ID: "view_from_above", Text: "High-angle shot, also known as a bird's-eye view. The camera is positioned high above the person's head, pointing down. The person is looking up directly into the camera lens."},
	},
	"torso_turn": {
		{ID: "torso_left_60", Text: "A portrait where the person has turned their entire torso 60 degrees to the left. The result is an almost profile view of the person."},
		{ID: "torso_right_60", Text: "A portrait where the person has turned their entire torso 60 degrees to the right. The result is an almost profile view of the person."},
	},
	"back_view": {
		{ID: "back_view_left_profile", Text: "A portrait from behind. The person is standing with their back to the camera but has turned their head 90 degrees to the left, showing their left profile."},
		{ID: "back_view_straight", Text: "A photograph taken directly from behind the person. The image must clearly show the back of the person's head (occiput) and their back. The person is standing with their back completely to the camera and is not turning."},
		{ID: "back_view_right_profile", Text: "A portrait from behind. The person is standing with their back to the camera but has turned their head 90 degrees to the right, showing their right profile."},
	},
}

// avatarCoherence narrows traits to what is typical for an ethnicity.
// Traits missing from an entry are unrestricted.
var avatarCoherence = map[string]map[string][]string{
	"nordic": {
		"skin_tone":    {"porcelain", "fair", "freckled"},
		"eyes_shape":   {"almond", "round", "deep_set", "downturned", "hooded"},
		"eye_color":    {"blue", "gray", "green", "hazel", "gray_blue", "amber"},
		"hair_color":   {"ash_blonde", "golden_blonde", "platinum", "light_chestnut", "copper"},
		"hair_texture": {"straight", "wavy"},
	},
	"mediterranean": {
		"skin_tone":    {"fair", "olive", "light_brown"},
		"eyes_shape":   {"almond", "round", "deep_set"},
		"eye_color":    {"brown", "dark_brown", "hazel", "green"},
		"hair_color":   {"dark_chestnut", "chestnut", "black"},
		"hair_texture": {"straight", "wavy", "curly"},
	},
	"slavic": {
		"skin_tone":    {"porcelain", "fair"},
		"eyes_shape":   {"almond", "round", "deep_set", "downturned"},
		"eye_color":    {"blue", "gray", "green", "amber", "hazel"},
		"hair_color":   {"light_chestnut", "chestnut", "ash_blonde", "golden_blonde"},
		"hair_texture": {"straight", "wavy"},
	},
	"east_asian": {
		"skin_tone":    {"porcelain", "fair", "olive"},
		"eyes_shape":   {"almond", "hooded", "monolid"},
		"eye_color":    {"brown", "dark_brown"},
		"nose_shape":   {"straight", "narrow", "low_bridge"},
		"hair_color":   {"black", "dark_chestnut"},
		"hair_texture": {"straight"},
	},
	"southeast_asian": {
		"skin_tone":    {"olive", "light_brown", "brown"},
		"eyes_shape":   {"almond", "monolid", "round"},
		"eye_color":    {"brown", "dark_brown"},
		"nose_shape":   {"bulbous", "low_bridge", "wide"},
		"hair_color":   {"black", "dark_chestnut"},
		"hair_texture": {"straight", "wavy"},
	},
	"south_asian": {
		"skin_tone":    {"olive", "light_brown", "brown", "dark_brown"},
		"eyes_shape":   {"almond", "round", "deep_set"},
		"eye_color":    {"brown", "dark_brown", "amber"},
		"hair_color":   {"black", "dark_chestnut"},
		"hair_texture": {"straight", "wavy", "curly"},
	},
	"middle_eastern": {
		"skin_tone":    {"olive", "light_brown", "fair"},
		"eyes_shape":   {"almond", "deep_set"},
		"eye_color":    {"brown", "dark_brown", "hazel", "green"},
		"hair_color":   {"black", "dark_chestnut", "chestnut"},
		"hair_texture": {"wavy", "curly", "straight"},
	},
	"african": {
		"skin_tone":    {"light_brown", "brown", "dark_brown", "very_dark"},
		"eyes_shape":   {"almond", "round"},
		"eye_color":    {"brown", "dark_brown"},
		"nose_shape":   {"wide", "bulbous"},
		"hair_color":   {"black", "dark_chestnut"},
		"hair_texture": {"coily", "afro", "dreadlocks"},
	},
	"latino": {
		"skin_tone":    {"olive", "light_brown", "brown"},
		"eyes_shape":   {"almond", "round"},
		"eye_color":    {"brown", "dark_brown", "hazel", "amber"},
		"hair_color":   {"black", "dark_chestnut", "chestnut"},
		"hair_texture": {"straight", "wavy", "curly"},
	},
}

var avatarAspects = []domain.AspectRatio{domain.AspectSquare, domain.AspectLandscape, domain.AspectPortrait}

// AvatarSelections is the avatar form. Trait fields take a catalog key or
// "random", which leaves the trait to the model.
type AvatarSelections struct {
	Stage    AvatarStage `json:"stage" toml:"stage"`
	Gender   string      `json:"gender" toml:"gender"`
	ShotType string      `json:"shot_type" toml:"shot_type"`

	// FreeTraits turns off ethnic coherence: traits are not narrowed by the
	// ethnicity, which is then listed as a plain trait.
	FreeTraits  bool   `json:"free_traits" toml:"free_traits"`
	Ethnicity   string `json:"ethnicity" toml:"ethnicity"`
	AgeRange    string `json:"age_range" toml:"age_range"`
	SkinTone    string `json:"skin_tone" toml:"skin_tone"`
	FaceShape   string `json:"face_shape" toml:"face_shape"`
	EyesShape   string `json:"eyes_shape" toml:"eyes_shape"`
	EyeColor    string `json:"eye_color" toml:"eye_color"`
	NoseShape   string `json:"nose_shape" toml:"nose_shape"`
	LipsShape   string `json:"lips_shape" toml:"lips_shape"`
	HairColor   string `json:"hair_color" toml:"hair_color"`
	HairLength  string `json:"hair_length" toml:"hair_length"`
	HairTexture string `json:"hair_texture" toml:"hair_texture"`
	FacialHair  string `json:"facial_hair" toml:"facial_hair"`
	Expression  string `json:"expression" toml:"expression"`

	Emotion string `json:"emotion" toml:"emotion"`
	PoseSet string `json:"pose_set" toml:"pose_set"`

	AspectRatio domain.AspectRatio `json:"aspect_ratio" toml:"aspect_ratio"`
}

type avatarTrait struct {
	name    string
	value   *string
	catalog map[string]string
}

// traitFields lists the trait fields in prompt order.
func (s *AvatarSelections) traitFields() []avatarTrait {
	return []avatarTrait{
		{"age_range", &s.AgeRange, avatarAges},
		{"ethnicity", &s.Ethnicity, avatarEthnicities},
		{"skin_tone", &s.SkinTone, avatarSkinTones},
		{"face_shape", &s.FaceShape, avatarFaceShapes},
		{"eyes_shape", &s.EyesShape, avatarEyeShapes},
		{"eye_color", &s.EyeColor, avatarEyeColors},
		{"nose_shape", &s.NoseShape, avatarNoseShapes},
		{"lips_shape", &s.LipsShape, avatarLipShapes},
		{"hair_color", &s.HairColor, avatarHairColors},
		{"hair_length", &s.HairLength, avatarHairLengths},
		{"hair_texture", &s.HairTexture, avatarHairTextures},
		{"facial_hair", &s.FacialHair, avatarFacialHair},
		{"expression", &s.Expression, avatarExpressions},
	}
}

// Normalize lowercases keys and applies the form defaults.
func (s *AvatarSelections) Normalize() {
	if s == nil {
		return
	}
	key := func(v, def string) string {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			return def
		}
		return v
	}
	s.Stage = AvatarStage(key(string(s.Stage), string(AvatarFace)))
	s.Gender = key(s.Gender, "female")
	s.ShotType = key(s.ShotType, "close_up")
	for _, t := range s.traitFields() {
		def := Random
		if t.name == "expression" {
			def = "neutral"
		}
		*t.value = key(*t.value, def)
	}
	s.Emotion = key(s.Emotion, "neutral")
	s.PoseSet = key(s.PoseSet, "head_turn")
	if s.AspectRatio == "" {
		s.AspectRatio = domain.AspectLandscape
	}
}

// Validate rejects unknown keys and aspect ratios the avatar form does not offer.
func (s AvatarSelections) Validate() error {
	switch s.Stage {
	case AvatarFace, AvatarEmotion, AvatarPose:
	default:
		return invalid("stage", string(s.Stage))
	}
	if _, ok := avatarGenders[s.Gender]; !ok {
		return invalid("gender", s.Gender)
	}
	if _, ok := avatarShots[s.ShotType]; !ok {
		return invalid("shot_type", s.ShotType)
	}
	for _, t := range s.traitFields() {
		if _, ok := t.catalog[*t.value]; !ok && *t.value != Random {
			return invalid(t.name, *t.value)
		}
	}
	if _, ok := avatarEmotions[s.Emotion]; !ok {
		return invalid("emotion", s.Emotion)
	}
	if _, ok := avatarPoseSets[s.PoseSet]; !ok {
		return invalid("pose_set", s.PoseSet)
	}
	for _, ar := range avatarAspects {
		if s.AspectRatio == ar {
			return nil
		}
	}
	return invalid("aspect_ratio", string(s.AspectRatio))
}

// NeedsFace reports whether the stage works from an uploaded face.
func (s AvatarSelections) NeedsFace() bool { return s.Stage != AvatarFace }

// coherent reports whether trait value fits the selected ethnicity.
func (s AvatarSelections) coherent(trait, value string) bool {
	if s.FreeTraits {
		return true
	}
	allowed, ok := avatarCoherence[s.Ethnicity][trait]
	return !ok || contains(allowed, value)
}

// Traits returns the trait descriptors of a face prompt. A pick that does
// not fit the ethnicity is left to the model like "random".
func (s AvatarSelections) Traits() []string {
	var out []string
	if !s.FreeTraits && s.Ethnicity != Random {
		out = append(out, fmt.Sprintf("a person of typical %s ethnicity", avatarEthnicities[s.Ethnicity]))
	}
	for _, t := range s.traitFields() {
		v := *t.value
		switch {
		case v == Random:
		case t.name == "ethnicity" && !s.FreeTraits:
		case t.name == "facial_hair" && s.Gender != "male":
		case !s.coherent(t.name, v):
		default:
			out = append(out, t.catalog[v])
		}
	}
	return out
}

// Clauses lists the parts of a face prompt.
func (s AvatarSelections) Clauses() []Clause {
	outfit := avatarGenders[s.Gender]
	subject := "The subject is " + outfit.noun
	if s.ShotType != "close_up" {
		subject += ", facing camera, wearing " + outfit.top
		if avatarLegShots[s.ShotType] {
			subject += " and " + outfit.bottoms
		}
	}
	return []Clause{
		On(GroupShot, avatarShots[s.ShotType]),
		On(GroupSubject, subject),
		On(GroupScene, strings.Join(s.Traits(), ", ")),
		On(GroupScene, avatarBackdrop),
		On(GroupCapture, avatarDetail),
		On(GroupCapture, avatarCamera),
		On(GroupAspect, aspectDirectives[s.AspectRatio]),
	}
}

// Avatar composes the prompt for a new studio face.
func Avatar(s AvatarSelections) string {
	return Build(avatarBase, s.Clauses())
}

// Changes returns the redraws an emotion or pose stage renders, one item each.
// The face stage has none.
func (s AvatarSelections) Changes() []VariationPreset {
	switch s.Stage {
	case AvatarEmotion:
		return []VariationPreset{{ID: "emotion_" + s.Emotion, Text: avatarEmotions[s.Emotion]}}
	case AvatarPose:
		return append([]VariationPreset(nil), avatarPoseSets[s.PoseSet]...)
	}
	return nil
}

// AvatarChange composes the redraw of an uploaded face with one change.
func AvatarChange(change string) string {
	return VariationBase + " " + fmt.Sprintf(avatarChange, strings.TrimSpace(change))
}

// AvatarCatalog lists the avatar form keys.
type AvatarCatalog struct {
	Stages       []string                       `json:"stages"`
	Genders      []string                       `json:"genders"`
	ShotTypes    []string                       `json:"shot_types"`
	Ethnicities  []string                       `json:"ethnicities"`
	AgeRanges    []string                       `json:"age_ranges"`
	SkinTones    []string                       `json:"skin_tones"`
	FaceShapes   []string                       `json:"face_shapes"`
	EyeShapes    []string                       `json:"eyes_shapes"`
	EyeColors    []string                       `json:"eye_colors"`
	NoseShapes   []string                       `json:"nose_shapes"`
	LipShapes    []string                       `json:"lips_shapes"`
	HairColors   []string                       `json:"hair_colors"`
	HairLengths  []string                       `json:"hair_lengths"`
	HairTextures []string                       `json:"hair_textures"`
	FacialHair   []string                       `json:"facial_hair"`
	Expressions  []string                       `json:"expressions"`
	Emotions     []string                       `json:"emotions"`
	PoseSets     map[string][]string            `json:"pose_sets"`
	AspectRatios []string                       `json:"aspect_ratios"`
	Coherence    map[string]map[string][]string `json:"coherence"`
}

func avatarOptions() AvatarCatalog {
	withRandom := func(m map[string]string) []string { return append([]string{Random}, keys(m)...) }
	poses := make(map[string][]string, len(avatarPoseSets))
	for name, set := range avatarPoseSets {
		for _, p := range set {
			poses[name] = append(poses[name], p.ID)
		}
	}
	aspects := make([]string, 0, len(avatarAspects))
	for _, ar := range avatarAspects {
		aspects = append(aspects, string(ar))
	}
	genders := make(map[string]string, len(avatarGenders))
	for k, v := range avatarGenders {
		genders[k] = v.noun
	}
	return AvatarCatalog{
		Stages:       []string{string(AvatarFace), string(AvatarEmotion), string(AvatarPose)},
		Genders:      keys(genders),
		ShotTypes:    keys(avatarShots),
		Ethnicities:  withRandom(avatarEthnicities),
		AgeRanges:    withRandom(avatarAges),
		SkinTones:    withRandom(avatarSkinTones),
		FaceShapes:   withRandom(avatarFaceShapes),
		EyeShapes:    withRandom(avatarEyeShapes),
		EyeColors:    withRandom(avatarEyeColors),
		NoseShapes:   withRandom(avatarNoseShapes),
		LipShapes:    withRandom(avatarLipShapes),
		HairColors:   withRandom(avatarHairColors),
		HairLengths:  withRandom(avatarHairLengths),
		HairTextures: withRandom(avatarHairTextures),
		FacialHair:   withRandom(avatarFacialHair),
		Expressions:  withRandom(avatarExpressions),
		Emotions:     keys(avatarEmotions),
		PoseSets:     poses,
		AspectRatios: aspects,
		Coherence:    avatarCoherence,
	}
}
