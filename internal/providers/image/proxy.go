package image

import (
	"context"
	"strings"

	"setka/internal/infra"
)

// Proxy model ids served through OhMyGPT.
const (
	ProxyDallE     = "dall-e"
	ProxyFluxPro   = "flux-1.1-pro"
	proxyMaxImages = 10
)

var proxyBatchLimits = map[string]int{
	ProxyDallE:   10,
	ProxyFluxPro: 8,
}

// ImageClient is the OhMyGPT transport, direct or relayed.
type ImageClient interface {
	GenerateImage(ctx context.Context, key, model, prompt string) (string, error)
	Download(ctx context.Context, imageURL string) ([]byte, string, error)
}

// Proxy forwards text prompts to a third-party image API. It has no image
// input, so reference images are dropped.
type Proxy struct {
	model      string
	client     ImageClient
	credential string
	logger     *infra.Logger
}

// NewProxy builds a proxy adapter for model. credential names the key family
// the client needs, CredentialNone when a relay holds the key.
func NewProxy(model string, client ImageClient, credential string, logger *infra.Logger) *Proxy {
	return &Proxy{
		model:      strings.TrimSpace(model),
		client:     client,
		credential: credential,
		logger:     infra.OrNop(logger),
	}
}

func (p *Proxy) Name() string { return p.model }

func (p *Proxy) Variant() Variant { return VariantProxy }

func (p *Proxy) Capabilities() Capabilities {
	limit, ok := proxyBatchLimits[p.model]
	if !ok {
		limit = proxyMaxImages
	}
	return Capabilities{
		MaxBatchSize: limit,
		AspectRatios: squareAndWide,
		CostPerImage: 1,
		Credential:   p.credential,
	}
}

func (p *Proxy) Generate(ctx context.Context, req Request, credential string) ([]Asset, error) {
	if n := len(req.References); n > 0 {
		p.logger.Debug().
			Str("provider", p.model).
			Int("dropped_references", n).
			Msg("image: proxy ignores reference images")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fatal(p.Name(), "prompt is required", nil)
	}
	imageURL, err := p.client.GenerateImage(ctx, credential, p.model, req.Prompt)
	if err != nil {
		return nil, classifyFor(p.Name(), err)
	}
	data, mime, err := p.client.Download(ctx, imageURL)
	if err != nil {
		return nil, classifyFor(p.Name(), err)
	}
	w, h := decodeDimensions(data)
	return []Asset{{Data: data, MIMEType: mime, URL: imageURL, Width: w, Height: h}}, nil
}

var _ Provider = (*Proxy)(nil)
