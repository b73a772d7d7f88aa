package image

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"setka/internal/domain"
	"setka/internal/infra"
)

// Default model ids.
const (
	GeminiModel = "gemini-2.5-flash-image"
	ImagenModel = "imagen-4.0-generate-001"
)

const modalityImage = "IMAGE"

const finishImageOther genai.FinishReason = "IMAGE_OTHER"

// Models is the subset of *genai.Models the adapters call.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// ModelsFactory returns a client bound to apiKey.
type ModelsFactory func(ctx context.Context, apiKey string) (Models, error)

// NewGenAIFactory builds genai clients on demand, one per distinct key.
func NewGenAIFactory(httpClient *http.Client) ModelsFactory {
	var (
		mu      sync.Mutex
		clients = map[string]Models{}
	)
	return func(ctx context.Context, apiKey string) (Models, error) {
		sum := sha256.Sum256([]byte(apiKey))
		id := hex.EncodeToString(sum[:])

		mu.Lock()
		defer mu.Unlock()
		if m, ok := clients[id]; ok {
			return m, nil
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("genai: new client: %w", err)
		}
		clients[id] = client.Models
		return client.Models, nil
	}
}

// Gemini serves both text-to-image and image-to-image through
// generateContent with an image response modality. One image per call.
type Gemini struct {
	model  string
	models ModelsFactory
	logger *infra.Logger
}

// NewGemini constructs the adapter. An empty model selects GeminiModel.
func NewGemini(model string, models ModelsFactory, logger *infra.Logger) *Gemini {
	if strings.TrimSpace(model) == "" {
		model = GeminiModel
	}
	return &Gemini{model: model, models: models, logger: infra.OrNop(logger)}
}

func (g *Gemini) Name() string { return g.model }

func (g *Gemini) Variant() Variant { return VariantImageToImage }

// Variants reports both modes: without a base reference Gemini renders from
// text onto a format template.
func (g *Gemini) Variants() []Variant {
	return []Variant{VariantTextToImage, VariantImageToImage}
}

func (g *Gemini) Capabilities() Capabilities {
	return Capabilities{
		SupportsImageInput: true,
		MaxBatchSize:       20,
		AspectRatios:       squareAndWide,
		CostPerImage:       1,
		Credential:         CredentialGemini,
	}
}

// Generate renders one image. With a base reference the request is an edit
// of that image; otherwise a black template carries the aspect ratio.
func (g *Gemini) Generate(ctx context.Context, req Request, credential string) ([]Asset, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, fatal(g.Name(), "api key is not set", nil)
	}
	parts, err := g.parts(req)
	if err != nil {
		return nil, err
	}
	models, err := g.models(ctx, credential)
	if err != nil {
		return nil, fatal(g.Name(), "client unavailable", err)
	}

	resp, err := models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: parts}},
		&genai.GenerateContentConfig{ResponseModalities: []string{modalityImage}},
	)
	if err != nil {
		return nil, classifyFor(g.Name(), err)
	}
	asset, err := g.extract(resp)
	if err != nil {
		return nil, err
	}
	g.logger.Debug().
		Str("provider", g.model).
		Int("references", len(req.References)).
		Int("bytes", len(asset.Data)).
		Msg("image: gemini generated")
	return []Asset{asset}, nil
}

func (g *Gemini) parts(req Request) ([]*genai.Part, error) {
	base, hasBase := req.Reference(RoleBase)
	if req.Mode == VariantImageToImage && !hasBase {
		return nil, fatal(g.Name(), "image-to-image request without a base image", nil)
	}
	if !hasBase {
		for _, ref := range req.References {
			if ref.Role == RoleClothing || ref.Role == RoleBackground {
				return nil, fatal(g.Name(), "reference images require a base image", nil)
			}
		}
		return g.textParts(req)
	}

	parts := []*genai.Part{inline(base)}
	for _, role := range []Role{RoleClothing, RoleBackground, RoleStyle} {
		if ref, ok := req.Reference(role); ok {
			parts = append(parts, inline(ref))
		}
	}
	return append(parts, &genai.Part{Text: req.Prompt}), nil
}

func (g *Gemini) textParts(req Request) ([]*genai.Part, error) {
	template, err := FormatImage(req.AspectRatio, req.Resolution)
	if err != nil {
		return nil, fatal(g.Name(), "format template", err)
	}
	parts := []*genai.Part{{InlineData: &genai.Blob{MIMEType: "image/png", Data: template}}}

	text := fmt.Sprintf(`The provided image is a black template that defines the required aspect ratio. Your output MUST match this aspect ratio. The user's prompt is: "%s". The image should be 8k, ultra high detail, photorealistic.`, req.Prompt)
	if style, ok := req.Reference(RoleStyle); ok {
		parts = append(parts, inline(style))
		text = fmt.Sprintf(`Use Image 2 as a style reference. The user's prompt is: "%s". Recreate the content of the prompt in the style of Image 2. Image 1 is a black template that defines the required aspect ratio. Your output MUST match this aspect ratio.`, req.Prompt)
	}
	return append(parts, &genai.Part{Text: text}), nil
}

func (g *Gemini) extract(resp *genai.GenerateContentResponse) (Asset, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		msg := "empty response"
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			msg += fmt.Sprintf(", prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return Asset{}, fatal(g.Name(), msg, ErrMalformedResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			w, h := decodeDimensions(part.InlineData.Data)
			return Asset{Data: part.InlineData.Data, MIMEType: mime, Width: w, Height: h}, nil
		}
	}
	switch candidate.FinishReason {
	case genai.FinishReasonSafety, finishImageOther:
		return Asset{}, retryable(g.Name(), fmt.Sprintf("no image, finish reason %s", candidate.FinishReason))
	case "":
		return Asset{}, fatal(g.Name(), "no image data in response", ErrMalformedResponse)
	}
	return Asset{}, fatal(g.Name(), fmt.Sprintf("no image data in response, finish reason %s", candidate.FinishReason), ErrMalformedResponse)
}

func inline(src SourceImage) *genai.Part {
	mime := src.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: src.Data}}
}

// Imagen returns several images from a single generateImages call.
type Imagen struct {
	model  string
	models ModelsFactory
	logger *infra.Logger
}

// NewImagen constructs the adapter. An empty model selects ImagenModel.
func NewImagen(model string, models ModelsFactory, logger *infra.Logger) *Imagen {
	if strings.TrimSpace(model) == "" {
		model = ImagenModel
	}
	return &Imagen{model: model, models: models, logger: infra.OrNop(logger)}
}

func (m *Imagen) Name() string { return m.model }

func (m *Imagen) Variant() Variant { return VariantTextToImage }

func (m *Imagen) Capabilities() Capabilities {
	return Capabilities{
		MaxBatchSize: 8,
		AspectRatios: append([]domain.AspectRatio(nil), domain.AllAspectRatios...),
		CostPerImage: 1,
		NativeBatch:  true,
		Credential:   CredentialGemini,
	}
}

func (m *Imagen) Generate(ctx context.Context, req Request, credential string) ([]Asset, error) {
	return m.GenerateBatch(ctx, req, 1, credential)
}

// GenerateBatch asks for n images at once. Fewer than n may come back when
// the upstream filters some of them.
func (m *Imagen) GenerateBatch(ctx context.Context, req Request, n int, credential string) ([]Asset, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, fatal(m.Name(), "api key is not set", nil)
	}
	if n <= 0 {
		n = 1
	}
	models, err := m.models(ctx, credential)
	if err != nil {
		return nil, fatal(m.Name(), "client unavailable", err)
	}

	ar := req.AspectRatio
	if ar == "" {
		ar = domain.DefaultAspectRatio
	}
	resolution := req.Resolution
	if !ar.ValidResolution(resolution) {
		resolution = ar.DefaultResolution()
	}
	prompt := fmt.Sprintf("%s. 8k, ultra high detail, photorealistic, aim for a high resolution around %s pixels.",
		strings.TrimRight(strings.TrimSpace(req.Prompt), ". "), resolution)

	resp, err := models.GenerateImages(ctx, m.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(n),
		AspectRatio:    string(ar),
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return nil, classifyFor(m.Name(), err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, fatal(m.Name(), "no images were generated", ErrMalformedResponse)
	}

	assets := make([]Asset, 0, len(resp.GeneratedImages))
	for _, gen := range resp.GeneratedImages {
		if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
			continue
		}
		mime := gen.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		w, h := decodeDimensions(gen.Image.ImageBytes)
		assets = append(assets, Asset{Data: gen.Image.ImageBytes, MIMEType: mime, Width: w, Height: h})
	}
	if len(assets) == 0 {
		return nil, fatal(m.Name(), "no images were generated", ErrMalformedResponse)
	}
	m.logger.Debug().
		Str("provider", m.model).
		Int("requested", n).
		Int("returned", len(assets)).
		Msg("image: imagen generated")
	return assets, nil
}

var (
	_ Provider      = (*Gemini)(nil)
	_ BatchProvider = (*Imagen)(nil)
	_ Models        = (*genai.Models)(nil)
)
