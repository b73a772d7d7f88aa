package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"setka/internal/domain"
)

type historyView struct {
	ID          string             `json:"id"`
	BatchID     string             `json:"batch_id"`
	Provider    string             `json:"provider"`
	Prompt      string             `json:"prompt"`
	AspectRatio domain.AspectRatio `json:"aspect_ratio"`
	MIMEType    string             `json:"mime_type"`
	ImageURL    string             `json:"image_url"`
	CreatedAt   time.Time          `json:"created_at"`
}

func (a *App) HistoryList(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.History.ListByUser(r.Context(), userID, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]historyView, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyView{
			ID:          e.ID,
			BatchID:     e.BatchID,
			Provider:    e.Provider,
			Prompt:      e.Prompt,
			AspectRatio: e.AspectRatio,
			MIMEType:    e.MIMEType,
			ImageURL:    "/v1/history/" + e.ID + "/image",
			CreatedAt:   e.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) HistoryImage(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	entry, err := a.History.Get(r.Context(), userID, chi.URLParam(r, "entry_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := a.Blobs.Read(r.Context(), entry.StorageKey)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeImage(w, entry.MIMEType, data)
}

// HistoryDelete removes an entry, its favorites references and the stored image.
func (a *App) HistoryDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	entry, err := a.History.Delete(r.Context(), userID, chi.URLParam(r, "entry_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if a.Favorites != nil {
		if err := a.Favorites.RemoveImage(r.Context(), userID, entry.ID); err != nil {
			a.logger().Warn().Err(err).Str("entry_id", entry.ID).Msg("history: favorites cleanup failed")
		}
	}
	a.dropImage(r, entry.StorageKey)
	w.WriteHeader(http.StatusNoContent)
}

// dropImage deletes a stored image. The row is already gone, so failures are only logged.
func (a *App) dropImage(r *http.Request, key string) {
	if a.Blobs == nil || key == "" {
		return
	}
	if err := a.Blobs.Delete(r.Context(), key); err != nil {
		a.logger().Warn().Err(err).Str("storage_key", key).Msg("history: image cleanup failed")
	}
}
