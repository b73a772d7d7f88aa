// Package image adapts the image-generation backends behind one Provider
// contract. Every failure leaving this package is a *ProviderError that says
// whether the call may be retried.
package image

import (
	"context"

	"setka/internal/domain"
)

// Variant names how a provider consumes a request.
type Variant string

const (
	VariantTextToImage  Variant = "text_to_image"
	VariantImageToImage Variant = "image_to_image"
	VariantProxy        Variant = "proxy"
)

// Role tags what an uploaded reference image is for.
type Role string

const (
	RoleBase       Role = "base"
	RoleStyle      Role = "style"
	RoleClothing   Role = "clothing"
	RoleBackground Role = "background"
)

// Credential families a provider may need.
const (
	CredentialNone    = ""
	CredentialGemini  = "gemini"
	CredentialOhMyGPT = "ohmygpt"
)

// SourceImage is one reference image attached to a request.
type SourceImage struct {
	Role     Role   `json:"role"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Request is a single generation request.
type Request struct {
	Prompt      string
	References  []SourceImage
	AspectRatio domain.AspectRatio
	Resolution  string
	Provider    string
	// Mode forces a variant. Empty lets the provider infer it from References.
	Mode Variant
	// Strength is 1..10 for image-to-image, 0 when unset.
	Strength int
}

// Reference returns the first reference with role.
func (r Request) Reference(role Role) (SourceImage, bool) {
	for _, ref := range r.References {
		if ref.Role == role && len(ref.Data) > 0 {
			return ref, true
		}
	}
	return SourceImage{}, false
}

// Asset is one generated image.
type Asset struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	URL      string `json:"url,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Capabilities describes what a provider accepts.
type Capabilities struct {
	SupportsImageInput bool                 `json:"supports_image_input"`
	MaxBatchSize       int                  `json:"max_batch_size"`
	AspectRatios       []domain.AspectRatio `json:"aspect_ratios"`
	CostPerImage       int                  `json:"cost_per_image"`
	NativeBatch        bool                 `json:"native_batch"`
	Credential         string               `json:"credential,omitempty"`
}

// SupportsAspect reports whether ar is accepted.
func (c Capabilities) SupportsAspect(ar domain.AspectRatio) bool {
	for _, a := range c.AspectRatios {
		if a == ar {
			return true
		}
	}
	return false
}

// CostFor returns the per-image price for mode. Callers paying with their
// own key are not charged.
func (c Capabilities) CostFor(mode domain.PaymentMode) int {
	if mode == domain.PaymentOwnKey {
		return 0
	}
	return c.CostPerImage
}

// Provider generates images for one model.
type Provider interface {
	Name() string
	Variant() Variant
	Capabilities() Capabilities
	Generate(ctx context.Context, req Request, credential string) ([]Asset, error)
}

// MultiVariant is implemented by providers that serve more than the variant
// they report as primary.
type MultiVariant interface {
	Variants() []Variant
}

// VariantsOf lists every variant p serves.
func VariantsOf(p Provider) []Variant {
	if m, ok := p.(MultiVariant); ok {
		if v := m.Variants(); len(v) > 0 {
			return v
		}
	}
	return []Variant{p.Variant()}
}

// BatchProvider returns n images from one upstream call.
type BatchProvider interface {
	Provider
	GenerateBatch(ctx context.Context, req Request, n int, credential string) ([]Asset, error)
}

var squareAndWide = []domain.AspectRatio{domain.AspectSquare, domain.AspectLandscape, domain.AspectPortrait}
