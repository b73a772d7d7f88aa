package image

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"setka/internal/domain"
)

// ErrUnknownProvider is returned for ids nobody registered.
var ErrUnknownProvider = errors.New("image: unknown provider")

// Registry resolves provider ids. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry registers providers in catalog order.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces p under p.Name().
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Resolve returns the provider registered under id.
func (r *Registry) Resolve(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	return p, nil
}

// BatchLimit returns the most images the provider registered under id takes
// in one batch, or 0 when id is unknown or the provider sets no limit.
func (r *Registry) BatchLimit(id string) int {
	if r == nil {
		return 0
	}
	p, err := r.Resolve(id)
	if err != nil {
		return 0
	}
	return p.Capabilities().MaxBatchSize
}

// ModelInfo is one catalog row.
type ModelInfo struct {
	ID           string                          `json:"id"`
	Variant      Variant                         `json:"variant"`
	Variants     []Variant                       `json:"variants"`
	VariantLabel string                          `json:"variant_label"`
	Capabilities Capabilities                    `json:"capabilities"`
	Resolutions  map[domain.AspectRatio][]string `json:"resolutions"`
}

// Catalog lists the registered models in registration order.
func (r *Registry) Catalog() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	title := cases.Title(language.English)
	out := make([]ModelInfo, 0, len(r.order))
	for _, id := range r.order {
		p := r.providers[id]
		caps := p.Capabilities()
		res := make(map[domain.AspectRatio][]string, len(caps.AspectRatios))
		for _, ar := range caps.AspectRatios {
			res[ar] = ar.Resolutions()
		}
		variants := VariantsOf(p)
		labels := make([]string, 0, len(variants))
		for _, v := range variants {
			labels = append(labels, title.String(strings.ReplaceAll(string(v), "_", " ")))
		}
		out = append(out, ModelInfo{
			ID:           id,
			Variant:      p.Variant(),
			Variants:     variants,
			VariantLabel: strings.Join(labels, " / "),
			Capabilities: caps,
			Resolutions:  res,
		})
	}
	return out
}
