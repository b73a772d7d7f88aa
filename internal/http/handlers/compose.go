package handlers

import (
	"fmt"
	"strings"

	"setka/internal/domain"
	"setka/internal/prompt"
	"setka/internal/providers/image"
)

// Batch modes accepted by the submit and preview endpoints.
const (
	modeExpert    = "expert"
	modePortrait  = "portrait"
	modeVariation = "variation"
	modeEditing   = "editing"
	modeAvatar    = "avatar"
)

// unresolvedBatchLimit bounds count when the provider is unknown here;
// submitting then reports the unknown provider itself.
const unresolvedBatchLimit = 20

// batchLimit returns the batch size a provider accepts, 0 when unknown.
type batchLimit func(provider string) int

type variationForm struct {
	Prompt   string `json:"prompt"`
	Strength int    `json:"strength"`
}

// batchForm is the body of POST /v1/batches and /v1/prompts/preview.
type batchForm struct {
	Mode        string                     `json:"mode"`
	Provider    string                     `json:"provider"`
	Count       int                        `json:"count"`
	AspectRatio domain.AspectRatio         `json:"aspect_ratio"`
	Resolution  string                     `json:"resolution"`
	Expert      *prompt.ExpertSelections   `json:"expert,omitempty"`
	Portrait    *prompt.PortraitSelections `json:"portrait,omitempty"`
	Variation   *variationForm             `json:"variation,omitempty"`
	Editing     *prompt.EditingSelections  `json:"editing,omitempty"`
	Avatar      *prompt.AvatarSelections   `json:"avatar,omitempty"`
	Images      []image.SourceImage        `json:"images,omitempty"`
}

type composedBatch struct {
	requests []image.Request
	itemIDs  []string
}

// compose turns the form into provider requests. With previewOnly set,
// missing reference images are tolerated so prompts can be shown before
// anything is uploaded. limit may be nil.
func (f batchForm) compose(defaultText, defaultImage string, limit batchLimit, previewOnly bool) (composedBatch, error) {
	mode := strings.ToLower(strings.TrimSpace(f.Mode))
	if mode == "" {
		mode = modeExpert
	}
	count := f.Count
	if count <= 0 {
		count = 1
	}
	fits := func(provider string, n int) error {
		most := 0
		if limit != nil {
			most = limit(provider)
		}
		if most <= 0 {
			most = unresolvedBatchLimit
		}
		if n > most {
			return fmt.Errorf("%w: %s accepts at most %d images per batch", domain.ErrInvalidSelection, provider, most)
		}
		return nil
	}

	var (
		out    composedBatch
		text   string
		aspect domain.AspectRatio
		refs   []image.SourceImage
		itemN  = count
	)
	switch mode {
	case modeExpert:
		var sel prompt.ExpertSelections
		if f.Expert != nil {
			sel = *f.Expert
		}
		sel.Normalize()
		if err := sel.Validate(); err != nil {
			return composedBatch{}, err
		}
		if sel.UsesStyleImage() {
			style, err := f.reference(image.RoleStyle, previewOnly)
			if err != nil {
				return composedBatch{}, err
			}
			refs = append(refs, style...)
		}
		text, aspect = prompt.Expert(sel), sel.AspectRatio

	case modePortrait:
		var sel prompt.PortraitSelections
		if f.Portrait != nil {
			sel = *f.Portrait
		}
		sel.Normalize()
		if err := sel.Validate(); err != nil {
			return composedBatch{}, err
		}
		roles := []image.Role{image.RoleBase}
		if sel.UsesClothingImage() {
			roles = append(roles, image.RoleClothing)
		}
		if sel.UsesBackgroundImage() {
			roles = append(roles, image.RoleBackground)
		}
		for _, role := range roles {
			ref, err := f.reference(role, previewOnly)
			if err != nil {
				return composedBatch{}, err
			}
			refs = append(refs, ref...)
		}
		variations := prompt.Variations(sel.Mode)
		if f.Count > 0 && f.Count < len(variations) {
			variations = variations[:f.Count]
		}
		provider := f.providerOr(defaultImage)
		if err := fits(provider, len(variations)); err != nil {
			return composedBatch{}, err
		}
		for _, v := range variations {
			out.requests = append(out.requests, image.Request{
				Prompt:      prompt.Portrait(sel, v.Text),
				References:  refs,
				AspectRatio: sel.AspectRatio,
				Resolution:  f.resolution(sel.AspectRatio),
				Provider:    provider,
				Mode:        image.VariantImageToImage,
			})
			out.itemIDs = append(out.itemIDs, v.ID)
		}
		return out, nil

	case modeVariation:
		var vf variationForm
		if f.Variation != nil {
			vf = *f.Variation
		}
		base, err := f.reference(image.RoleBase, previewOnly)
		if err != nil {
			return composedBatch{}, err
		}
		refs = base
		strength := prompt.ClampStrength(vf.Strength)
		text = prompt.Variation(vf.Prompt, strength)
		if aspect, err = domain.ParseAspectRatio(string(f.AspectRatio)); err != nil {
			return composedBatch{}, err
		}
		provider := f.providerOr(defaultImage)
		if err := fits(provider, count); err != nil {
			return composedBatch{}, err
		}
		for i := 0; i < count; i++ {
			out.requests = append(out.requests, image.Request{
				Prompt:      text,
				References:  refs,
				AspectRatio: aspect,
				Resolution:  f.resolution(aspect),
				Provider:    provider,
				Mode:        image.VariantImageToImage,
				Strength:    strength,
			})
		}
		return out, nil

	case modeEditing:
		var sel prompt.EditingSelections
		if f.Editing != nil {
			sel = *f.Editing
		}
		sel.Normalize()
		if err := sel.Validate(); err != nil {
			return composedBatch{}, err
		}
		roles := []image.Role{image.RoleBase}
		if sel.UsesStyleImage() {
			roles = append(roles, image.RoleStyle)
		}
		for _, role := range roles {
			ref, err := f.reference(role, previewOnly)
			if err != nil {
				return composedBatch{}, err
			}
			refs = append(refs, ref...)
		}
		var err error
		if aspect, err = domain.ParseAspectRatio(string(f.AspectRatio)); err != nil {
			return composedBatch{}, err
		}
		text, itemN = prompt.Editing(sel), 1

	case modeAvatar:
		var sel prompt.AvatarSelections
		if f.Avatar != nil {
			sel = *f.Avatar
		}
		sel.Normalize()
		if err := sel.Validate(); err != nil {
			return composedBatch{}, err
		}
		if !sel.NeedsFace() {
			text, aspect = prompt.Avatar(sel), sel.AspectRatio
			break
		}
		face, err := f.reference(image.RoleBase, previewOnly)
		if err != nil {
			return composedBatch{}, err
		}
		changes := sel.Changes()
		provider := f.providerOr(defaultImage)
		if err := fits(provider, len(changes)); err != nil {
			return composedBatch{}, err
		}
		for _, c := range changes {
			out.requests = append(out.requests, image.Request{
				Prompt:      prompt.AvatarChange(c.Text),
				References:  face,
				AspectRatio: sel.AspectRatio,
				Resolution:  f.resolution(sel.AspectRatio),
				Provider:    provider,
				Mode:        image.VariantImageToImage,
			})
			out.itemIDs = append(out.itemIDs, c.ID)
		}
		return out, nil

	default:
		return composedBatch{}, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidSelection, f.Mode)
	}

	provider := f.providerOr(defaultText)
	if len(refs) > 0 {
		provider = f.providerOr(defaultImage)
	}
	if err := fits(provider, itemN); err != nil {
		return composedBatch{}, err
	}
	for i := 0; i < itemN; i++ {
		out.requests = append(out.requests, image.Request{
			Prompt:      text,
			References:  refs,
			AspectRatio: aspect,
			Resolution:  f.resolution(aspect),
			Provider:    provider,
		})
	}
	return out, nil
}

// reference returns the uploaded image with role. It is an error when the
// image is missing, unless previewOnly.
func (f batchForm) reference(role image.Role, previewOnly bool) ([]image.SourceImage, error) {
	for _, img := range f.Images {
		if img.Role == role && len(img.Data) > 0 {
			if img.MIMEType == "" {
				img.MIMEType = "image/png"
			}
			return []image.SourceImage{img}, nil
		}
	}
	if previewOnly {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s image is required", domain.ErrInvalidSelection, role)
}

func (f batchForm) providerOr(fallback string) string {
	if p := strings.TrimSpace(f.Provider); p != "" {
		return p
	}
	return fallback
}

// resolution keeps the requested size when the aspect ratio offers it.
func (f batchForm) resolution(ar domain.AspectRatio) string {
	if ar.ValidResolution(f.Resolution) {
		return f.Resolution
	}
	return ar.DefaultResolution()
}
