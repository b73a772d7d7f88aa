package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"setka/internal/domain"
	"setka/internal/generation"
	"setka/internal/history"
	"setka/internal/providers/image"
	"setka/pkg/zip"
)

type itemView struct {
	generation.Result
	ImageURL string `json:"image_url,omitempty"`
}

type batchView struct {
	ID         string     `json:"id"`
	Provider   string     `json:"provider"`
	State      string     `json:"state"`
	Items      []itemView `json:"items"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func newBatchView(snap generation.Snapshot) batchView {
	v := batchView{
		ID:        snap.ID,
		Provider:  snap.Provider,
		State:     string(snap.State),
		Items:     make([]itemView, 0, len(snap.Items)),
		StartedAt: snap.StartedAt,
	}
	if !snap.FinishedAt.IsZero() {
		finished := snap.FinishedAt
		v.FinishedAt = &finished
	}
	for _, res := range snap.Items {
		item := itemView{Result: res}
		if res.Status == generation.StatusSuccess && res.Image != nil {
			item.ImageURL = fmt.Sprintf("/v1/batches/%s/items/%s/image", snap.ID, res.ID)
		}
		v.Items = append(v.Items, item)
	}
	return v
}

// payment loads how the caller pays. Payment mode is read per request so a
// switch in the profile applies to the next batch.
func (a *App) payment(r *http.Request, userID string) (generation.PaymentContext, error) {
	u, err := a.Accounts.Profile(r.Context(), userID)
	if err != nil {
		return generation.PaymentContext{}, err
	}
	return generation.PaymentContext{UserID: u.ID, Mode: u.PaymentMode}, nil
}

func (a *App) sinkFor(userID string) generation.Sink {
	if a.Blobs == nil || a.History == nil {
		return nil
	}
	return history.NewSink(a.Blobs, a.History, userID, a.Logger)
}

// ownedRun returns the caller's run or writes 404. Runs of other users are
// reported as missing.
func (a *App) ownedRun(w http.ResponseWriter, r *http.Request, userID string) (*generation.Run, bool) {
	run, ok := a.Batches.Get(chi.URLParam(r, "batch_id"))
	if !ok || run.UserID != userID {
		a.error(w, r, http.StatusNotFound, "not_found", "")
		return nil, false
	}
	return run, true
}

// BatchSubmit validates, charges and starts a batch. It answers 202 with the
// placeholders; items are filled in as the batch runs.
func (a *App) BatchSubmit(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	var form batchForm
	if !a.decode(w, r, &form) {
		return
	}
	text, img := a.defaultModels()
	composed, err := form.compose(text, img, a.Providers.BatchLimit, false)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	pay, err := a.payment(r, userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	run, err := a.Batches.Start(r.Context(), generation.Batch{
		Requests: composed.requests,
		ItemIDs:  composed.itemIDs,
		Payment:  pay,
	}, a.sinkFor(userID))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, newBatchView(run.Snapshot()))
}

func (a *App) BatchGet(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	run, ok := a.ownedRun(w, r, userID)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, newBatchView(run.Snapshot()))
}

// BatchStop flips the cancel token. Items already in flight finish their
// current attempt and are then discarded.
func (a *App) BatchStop(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	run, ok := a.ownedRun(w, r, userID)
	if !ok {
		return
	}
	run.Stop()
	a.json(w, http.StatusAccepted, newBatchView(run.Snapshot()))
}

type regenerateRequest struct {
	Prompt      string             `json:"prompt"`
	AspectRatio domain.AspectRatio `json:"aspect_ratio"`
	Resolution  string             `json:"resolution"`
}

// BatchRegenerate reruns one item as a new one-item batch.
func (a *App) BatchRegenerate(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	run, ok := a.ownedRun(w, r, userID)
	if !ok {
		return
	}
	var body regenerateRequest
	if r.ContentLength != 0 && !a.decode(w, r, &body) {
		return
	}
	if body.AspectRatio != "" && !body.AspectRatio.Valid() {
		a.fail(w, r, fmt.Errorf("%w: unsupported aspect ratio %q", domain.ErrInvalidSelection, body.AspectRatio))
		return
	}
	pay, err := a.payment(r, userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	req := image.Request{Prompt: body.Prompt, AspectRatio: body.AspectRatio, Resolution: body.Resolution}
	again, err := a.Batches.Regenerate(r.Context(), run.ID, chi.URLParam(r, "item_id"), req, pay, a.sinkFor(userID))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, newBatchView(again.Snapshot()))
}

// BatchItemImage serves the bytes of a finished item.
func (a *App) BatchItemImage(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	run, ok := a.ownedRun(w, r, userID)
	if !ok {
		return
	}
	item, ok := run.Item(chi.URLParam(r, "item_id"))
	if !ok {
		a.error(w, r, http.StatusNotFound, "not_found", "")
		return
	}
	if item.Status != generation.StatusSuccess || item.Image == nil || len(item.Image.Data) == 0 {
		a.error(w, r, http.StatusConflict, "image_not_ready", string(item.Status))
		return
	}
	writeImage(w, item.Image.MIMEType, item.Image.Data)
}

// BatchArchive zips every successful image of the batch.
func (a *App) BatchArchive(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	run, ok := a.ownedRun(w, r, userID)
	if !ok {
		return
	}
	snap := run.Snapshot()
	var entries []zip.Entry
	for _, item := range snap.Items {
		if item.Status != generation.StatusSuccess || item.Image == nil {
			continue
		}
		entries = append(entries, zip.Entry{
			Name:     fmt.Sprintf("%02d-%s", item.Index+1, item.ID),
			MIME:     item.Image.MIMEType,
			Data:     item.Image.Data,
			Modified: item.UpdatedAt,
		})
	}
	if len(entries) == 0 {
		a.error(w, r, http.StatusConflict, "image_not_ready", "")
		return
	}
	archive, err := zip.Archive(entries)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=batch-%s.zip", snap.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func writeImage(w http.ResponseWriter, mimeType string, data []byte) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
