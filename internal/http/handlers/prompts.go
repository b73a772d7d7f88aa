package handlers

import (
	"net/http"

	"setka/internal/domain"
	"setka/internal/prompt"
)

type previewItem struct {
	ID          string             `json:"id,omitempty"`
	Prompt      string             `json:"prompt"`
	AspectRatio domain.AspectRatio `json:"aspect_ratio"`
	Resolution  string             `json:"resolution"`
	Provider    string             `json:"provider"`
}

// PromptOptions returns every selectable key of the prompt forms.
func (a *App) PromptOptions(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, prompt.Options())
}

// PromptPreview composes the prompts a batch would send without generating.
func (a *App) PromptPreview(w http.ResponseWriter, r *http.Request) {
	var form batchForm
	if !a.decode(w, r, &form) {
		return
	}
	text, img := a.defaultModels()
	batch, err := form.compose(text, img, a.Providers.BatchLimit, true)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]previewItem, 0, len(batch.requests))
	for i, req := range batch.requests {
		item := previewItem{Prompt: req.Prompt, AspectRatio: req.AspectRatio, Resolution: req.Resolution, Provider: req.Provider}
		if i < len(batch.itemIDs) {
			item.ID = batch.itemIDs[i]
		}
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// defaultModels returns the providers used when a form names none: one for
// text-only requests and one for requests carrying reference images.
func (a *App) defaultModels() (string, string) {
	if a.Config == nil {
		return "", ""
	}
	return a.Config.ImagenModel, a.Config.GeminiModel
}
