package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"setka/internal/http/handlers"
	"setka/internal/infra"
	mw "setka/internal/middleware"
)

// NewRouter mounts every route of app. lookup may be nil when no GeoIP
// database is configured.
func NewRouter(app *handlers.App, lookup mw.CountryLookup) http.Handler {
	cfg := app.Config
	if cfg == nil {
		cfg = &infra.Config{DefaultLocale: "ru"}
	}
	limit := mw.RateLimit(cfg.RateLimitPerMin, time.Minute)

	r := chi.NewRouter()
	r.Use(
		mw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		mw.Logger(app.Logger),
		mw.CORS(cfg.CORSOrigins),
		mw.I18N(cfg.DefaultLocale, lookup),
	)

	// Public
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/models", app.Models)
	r.Get("/v1/prompts/options", app.PromptOptions)
	r.Post("/v1/prompts/preview", app.PromptPreview)

	// The relay answers 405 itself so the body keeps its {"message"} shape.
	r.With(limit).HandleFunc("/api/generate-image", app.RelayGenerateImage)

	r.Group(func(r chi.Router) {
		r.Use(mw.AuthJWT(cfg.JWTSecret))

		r.Get("/v1/me", app.Me)
		r.Put("/v1/me/payment", app.SetPayment)
		r.Post("/v1/me/promo", app.RedeemPromo)

		r.Route("/v1/batches", func(r chi.Router) {
			r.With(limit).Post("/", app.BatchSubmit)
			r.Get("/{batch_id}", app.BatchGet)
			r.Post("/{batch_id}/stop", app.BatchStop)
			r.Get("/{batch_id}/archive", app.BatchArchive)
			r.Get("/{batch_id}/items/{item_id}/image", app.BatchItemImage)
			r.With(limit).Post("/{batch_id}/items/{item_id}/regenerate", app.BatchRegenerate)
		})

		r.Route("/v1/history", func(r chi.Router) {
			r.Get("/", app.HistoryList)
			r.Get("/{entry_id}/image", app.HistoryImage)
			r.Delete("/{entry_id}", app.HistoryDelete)
		})

		r.Route("/v1/favorites", func(r chi.Router) {
			r.Get("/", app.FavoritesList)
			r.Post("/folders", app.FavoritesCreateFolder)
			r.Patch("/folders/{folder_id}", app.FavoritesRenameFolder)
			r.Delete("/folders/{folder_id}", app.FavoritesDeleteFolder)
			r.Post("/images", app.FavoritesAddImage)
			r.Delete("/images/{image_id}", app.FavoritesRemoveImage)
		})

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(app.RequireAdmin)
			r.Post("/users", app.AdminCreateUser)
			r.Get("/users/{user}", app.AdminGetUser)
			r.Patch("/users/{user}", app.AdminUpdateUser)
			r.Delete("/users/{user}", app.AdminDeleteUser)
			r.Post("/users/{user}/credits", app.AdminGrantCredits)
			r.Put("/users/{user}/payment", app.AdminSetPayment)
			r.Get("/users/{user}/favorites", app.AdminUserFavorites)
			r.Get("/promos", app.AdminListPromos)
			r.Post("/promos", app.AdminCreatePromo)
			r.Delete("/promos/{code}", app.AdminDeletePromo)
		})
	})

	return r
}
