package prompt

import (
	"sort"

	"setka/internal/domain"
)

// Selection keys shared by several option sets.
const (
	OptionCustom = "custom"
	OptionUpload = "upload"
)

// PortraitBase anchors every portrait adaptation on the uploaded identity.
const PortraitBase = `A high-quality, photorealistic image that accurately preserves the identity of the person in the uploaded photo. Aim for fine details, such as realistic skin texture, individual hair strands, and natural eye reflections. Use soft, cinematic lighting for depth, with a sharp focus on the subject and a natural bokeh effect. The style should be that of a professional photograph, not digital art. 8k resolution preferred.`

// VariationBase is layered under every image-to-image request.
const VariationBase = `The provided image is a reference. Create a new, photorealistic, high-resolution 8k image based on it, guided by the text prompt. It's very important that the identity, face, and key features of any person in the reference image are accurately preserved. The final image should look like a professional photograph with great detail, avoiding any digital art or cartoonish style.`

var shotTypes = map[string]string{
	"close_up":  "A tight close-up portrait, focusing strictly on the face from the top of the head to just below the chin. Only the head and neck should be visible.",
	"waist_up":  "A medium shot of the person from the waist up, clearly showing their stomach, torso, shoulders, and head completely.",
	"knee_up":   "A medium-long shot of the person from the knees up, clearly showing their legs from the knees, torso, arms, and head completely.",
	"full_body": "A full-body shot of the person, showing them standing from head to toe. The person's feet must be clearly visible, and they are wearing simple, plain shoes.",
}

var clothing = map[string]string{
	"classic": "The person is dressed formally. If a man, he is wearing a classic black suit with a white shirt and no tie. If a woman, she is wearing a classic black suit with a skirt.",
	"leisure": "The person is wearing a white tight-fitting t-shirt and blue jeans.",
	"beach":   "The person is dressed for the beach. If a man, he is wearing white beach shorts. If a woman, she is wearing a white triangle top bikini.",
}

var portraitBackgrounds = map[string]string{
	"studio_gray":   "On a solid, neutral gray studio background.",
	"studio_bright": "In a brightly lit professional photo studio with clean lighting.",
	"studio_dim":    "In a professional photo studio with soft, dim, atmospheric lighting.",
	"park":          "Outdoors in a city park with a soft focus background, sunny day.",
	"office":        "In a modern office space with large windows and a blurred city view.",
	"cafe":          "In a cozy café with a warmly lit, blurred background.",
	"bar":           "In a dimly lit, atmospheric bar with subtle neon lights in the background.",
}

var aspectDirectives = map[domain.AspectRatio]string{
	domain.AspectSquare:           "The final output image MUST be a perfect square (1:1 aspect ratio).",
	domain.AspectLandscape:        "The final output image MUST be in a wide landscape orientation (16:9 aspect ratio).",
	domain.AspectPortrait:         "The final output image MUST be in a tall portrait orientation (9:16 aspect ratio).",
	domain.AspectStandard:         "The final output image MUST be in a standard landscape orientation (4:3 aspect ratio).",
	domain.AspectStandardPortrait: "The final output image MUST be in a standard portrait orientation (3:4 aspect ratio).",
}

var photoStyles = map[string]string{
	"photorealism": "hyperrealistic photograph, ultra-detailed, 8k, professional photography, sharp focus, high quality",
	"macro":        "macro photography, extreme close-up, detailed, sharp focus on the subject with a blurred background (bokeh)",
	"portrait":     "studio portrait, professional portrait photography, soft lighting, sharp focus on the eyes",
	"anime":        "anime style, vibrant colors, clean lines, cel shading, detailed background, trending on pixiv",
	"oil_painting": "oil painting, textured brush strokes, rich colors, classic art style, masterpiece",
}

var lightingStyles = map[string]string{
	"cinematic":   "cinematic lighting, dramatic shadows, high contrast, moody atmosphere",
	"studio":      "professional studio 3-point lighting setup, clean, well-lit subject",
	"golden_hour": "golden hour lighting, warm, soft, long shadows, sunset",
	"rembrandt":   "Rembrandt lighting, strong side light, triangle of light on the cheek, dramatic and moody",
	"soft":        "soft diffused lighting, overcast day, minimal shadows, flattering light",
	"neon":        "neon lighting, vibrant pink and blue lights, cyberpunk aesthetic, reflective surfaces",
}

var filmGrain = map[string]string{
	NoPreference: "",
	"light":      "subtle film grain",
	"medium":     "medium film grain",
	"heavy":      "heavy film grain, vintage film look",
}

var blurEffects = map[string]string{
	NoPreference: "",
	"bokeh":      "soft background blur, beautiful bokeh",
	"motion":     "motion blur, dynamic movement",
	"tilt_shift": "tilt-shift effect, miniature faking",
}

var vignettes = map[string]string{
	NoPreference: "",
	"light":      "light vignette effect",
	"strong":     "strong, dramatic vignette effect",
}

var editingStyles = map[string]string{
	"photorealism":  "Make the image look like a hyperrealistic photograph, ultra-detailed, 8k, professional photography, sharp focus.",
	"anime":         "Transform the image into an anime style, with vibrant colors, clean lines, and cel shading.",
	"cyberpunk":     "Give the image a cyberpunk aesthetic, with neon lighting, futuristic elements, and a gritty, high-tech feel.",
	"black_white":   "Convert the image to a dramatic black and white photograph, with high contrast and deep blacks.",
	"oil_painting":  "Transform the image to look like a classic oil painting, with visible textured brush strokes and rich colors.",
	"watercolor":    "Transform the image into a watercolor painting, with soft edges and transparent colors.",
	"pencil_sketch": "Convert the image into a detailed pencil sketch, with fine lines and shading.",
	"steampunk":     "Give the image a steampunk aesthetic, with gears, cogs, brass, and Victorian-era technology.",
	"fantasy":       "Transform the image into a fantasy art style, with magical elements, epic landscapes, and vibrant colors.",
	"pop_art":       "Convert the image into a pop art style, with bold outlines, bright, blocky colors, and a comic book feel.",
}

var variationStrengths = [...]string{
	1:  "Make only minimal, subtle changes to the original image, introducing less than 10% creative variation. Stick as closely as possible to the source.",
	2:  "Introduce minor creative variations while keeping the result very close to the original image.",
	3:  "Apply some noticeable creative changes, but the core composition and subject should remain clearly derived from the original.",
	4:  "Add a moderate level of creative interpretation. The output should be a clear variation but still strongly resemble the original.",
	5:  "Balance the original image and creative freedom equally (50/50). Create a distinct variation that is clearly inspired by the source.",
	6:  "Lean more towards creative interpretation, using the original image as a strong inspiration for a new composition.",
	7:  "Introduce significant creative changes. The link to the original image should be conceptual rather than literal.",
	8:  "Take the core concepts from the original image and re-imagine them in a substantially different way.",
	9:  "Use the original image as a starting point for a highly imaginative and creative new picture, with very few direct similarities.",
	10: "Use maximum creative fantasy. The final image should be a completely new artistic interpretation, only loosely inspired by the themes of the original photo.",
}

// Strength bounds for image-to-image variation.
const (
	MinStrength     = 1
	MaxStrength     = 10
	DefaultStrength = 5
)

var shutterSpeeds = []string{
	"1/8000s", "1/4000s", "1/2000s", "1/1000s", "1/500s", "1/250s", "1/125s", "1/60s", "1/30s", "1/15s", "1/8s", "1/4s", "1/2s", "1s", "2s",
}

var isoValues = []string{"100", "200", "400", "800", "1600", "3200", "6400"}

// Camera ranges accepted by the expert composer.
const (
	MinAperture    = 1.4
	MaxAperture    = 22.0
	MinFocalLength = 14
	MaxFocalLength = 200
)

// Catalog describes every selectable key, for clients building forms.
type Catalog struct {
	ShotTypes     []string `json:"shot_types"`
	Clothing      []string `json:"clothing"`
	Backgrounds   []string `json:"backgrounds"`
	PhotoStyles   []string `json:"photo_styles"`
	Lighting      []string `json:"lighting"`
	FilmGrain     []string `json:"film_grain"`
	Blur          []string `json:"blur"`
	Vignette      []string `json:"vignette"`
	EditingStyles []string `json:"editing_styles"`
	ShutterSpeeds []string `json:"shutter_speeds"`
	ISO           []string `json:"iso"`
	OutputModes   []string `json:"output_modes"`

	Avatar AvatarCatalog `json:"avatar"`
}

// Options returns the sorted keys of every catalog.
func Options() Catalog {
	return Catalog{
		ShotTypes:     keys(shotTypes),
		Clothing:      append(keys(clothing), OptionCustom, OptionUpload),
		Backgrounds:   append(keys(portraitBackgrounds), OptionCustom, OptionUpload),
		PhotoStyles:   append(keys(photoStyles), OptionCustom, OptionUpload),
		Lighting:      append(keys(lightingStyles), OptionCustom),
		FilmGrain:     keys(filmGrain),
		Blur:          keys(blurEffects),
		Vignette:      keys(vignettes),
		EditingStyles: append(keys(editingStyles), OptionCustom, OptionUpload),
		ShutterSpeeds: append([]string(nil), shutterSpeeds...),
		ISO:           append([]string(nil), isoValues...),
		OutputModes:   []string{string(ModeAngles), string(ModeExpressions)},
		Avatar:        avatarOptions(),
	}
}

// AspectDirective returns the explicit framing sentence for ar.
func AspectDirective(ar domain.AspectRatio) string {
	return aspectDirectives[ar]
}

// DefaultResolution returns the preferred output size for ar.
func DefaultResolution(ar domain.AspectRatio) string {
	return ar.DefaultResolution()
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
