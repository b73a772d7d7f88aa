package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"setka/internal/account"
	"setka/internal/domain"
	"setka/internal/generation"
	"setka/internal/infra"
	"setka/internal/middleware"
	"setka/internal/providers/image"
	"setka/internal/storage"
)

// maxBodyBytes bounds JSON bodies; reference images travel base64 encoded.
const maxBodyBytes = 32 << 20

// BlobStore reads, writes and removes stored images.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ImageGenerator is the upstream used by the same-origin relay.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, key, model, prompt string) (string, error)
}

type App struct {
	Config      *infra.Config
	Logger      *infra.Logger
	Accounts    *account.Service
	Favorites   domain.FavoritesRepository
	History     domain.HistoryRepository
	Blobs       BlobStore
	Providers   *image.Registry
	Batches     *generation.Registry
	Relay       ImageGenerator
	Credentials account.TokenSource

	// TokenTTL is the lifetime of tokens minted for accounts created by an admin.
	TokenTTL time.Duration
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// error writes {"error":{...}} with the message in the request locale.
func (a *App) error(w http.ResponseWriter, r *http.Request, code int, key, detail string) {
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, code, map[string]errorBody{"error": {Code: key, Message: message(locale, key), Detail: detail}})
}

// fail maps err onto a status and error code. Unknown errors are logged and
// reported as internal without detail.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var pre *generation.PreconditionError
	switch {
	case errors.As(err, &pre):
		switch {
		case errors.Is(pre, generation.ErrInsufficientBalance):
			a.error(w, r, http.StatusPaymentRequired, "insufficient_balance", pre.Detail)
		case errors.Is(pre, generation.ErrMissingCredential):
			a.error(w, r, http.StatusForbidden, "missing_credential", pre.Detail)
		default:
			a.error(w, r, http.StatusBadRequest, "incompatible_request", pre.Detail)
		}
	case errors.Is(err, domain.ErrInvalidSelection):
		a.error(w, r, http.StatusBadRequest, "invalid_selection", err.Error())
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, r, http.StatusPaymentRequired, "insufficient_balance", "")
	case errors.Is(err, domain.ErrPromoNotFound):
		a.error(w, r, http.StatusNotFound, "promo_not_found", "")
	case errors.Is(err, domain.ErrPromoAlreadyUsed):
		a.error(w, r, http.StatusConflict, "promo_used", "")
	case errors.Is(err, domain.ErrUsernameTaken):
		a.error(w, r, http.StatusConflict, "username_taken", "")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "")
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, r, http.StatusForbidden, "forbidden", "")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, generation.ErrRunNotFound), errors.Is(err, storage.ErrNotFound):
		a.error(w, r, http.StatusNotFound, "not_found", "")
	default:
		a.logger().Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("handler failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "")
	}
}

// decode reads a JSON body into v. It writes the 400 itself and reports false.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// requireUser returns the caller id, or writes 401 and returns "".
func (a *App) requireUser(w http.ResponseWriter, r *http.Request) string {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
	}
	return userID
}

func (a *App) logger() *infra.Logger {
	return infra.OrNop(a.Logger)
}
