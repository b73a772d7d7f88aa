package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"setka/internal/domain"
	"setka/internal/middleware"
)

// defaultTokenTTL applies when App.TokenTTL is unset.
const defaultTokenTTL = 30 * 24 * time.Hour

// maxUserHistory bounds the images removed along with a deleted user.
const maxUserHistory = 10000

type createUserRequest struct {
	Username string `json:"username"`
	Credits  int    `json:"credits"`
}

// AdminCreateUser registers an account and returns a bearer token for it.
func (a *App) AdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Credits == 0 && a.Config != nil {
		req.Credits = a.Config.WelcomeCredits
	}
	u, err := a.Accounts.Register(r.Context(), req.Username, req.Credits)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ttl := a.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	var secret string
	if a.Config != nil {
		secret = a.Config.JWTSecret
	}
	token, err := middleware.IssueToken(secret, u.ID, string(u.Role), u.Locale, ttl)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger().Info().Str("user_id", u.ID).Str("admin_id", a.currentUserID(r)).Msg("admin: user created")
	a.json(w, http.StatusCreated, map[string]any{"user": newProfileView(u), "token": token})
}

// adminTarget resolves {user} as a username or an id, writing 404 if neither matches.
func (a *App) adminTarget(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	u, err := a.Accounts.Lookup(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return u, true
}

func (a *App) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	u, ok := a.adminTarget(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, newProfileView(u))
}

type grantRequest struct {
	Amount int `json:"amount"`
}

func (a *App) AdminGrantCredits(w http.ResponseWriter, r *http.Request) {
	u, ok := a.adminTarget(w, r)
	if !ok {
		return
	}
	var req grantRequest
	if !a.decode(w, r, &req) {
		return
	}
	balance, err := a.Accounts.Grant(r.Context(), u.ID, req.Amount)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger().Info().Str("user_id", u.ID).Int("amount", req.Amount).Str("admin_id", a.currentUserID(r)).Msg("admin: credits granted")
	a.json(w, http.StatusOK, map[string]int{"credits": balance})
}

func (a *App) AdminSetPayment(w http.ResponseWriter, r *http.Request) {
	u, ok := a.adminTarget(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.updatePayment(w, r, u.ID, req)
}

// AdminUserFavorites shows another user's library read-only.
func (a *App) AdminUserFavorites(w http.ResponseWriter, r *http.Request) {
	u, ok := a.adminTarget(w, r)
	if !ok {
		return
	}
	a.writeFavorites(w, r, u.ID)
}

type promoView struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Credits   int       `json:"credits"`
	UsedBy    []string  `json:"used_by"`
	CreatedAt time.Time `json:"created_at"`
}

func newPromoView(p domain.PromoCode) promoView {
	return promoView{Code: p.Code, Name: p.Name, Credits: p.TotalCredits, UsedBy: append([]string{}, p.UsedBy...), CreatedAt: p.CreatedAt}
}

type createPromoRequest struct {
	Name    string `json:"name"`
	Credits int    `json:"credits"`
}

func (a *App) AdminCreatePromo(w http.ResponseWriter, r *http.Request) {
	var req createPromoRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Credits <= 0 {
		a.error(w, r, http.StatusBadRequest, "invalid_selection", "credits must be positive")
		return
	}
	p, err := a.Accounts.CreatePromo(r.Context(), req.Name, req.Credits)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, newPromoView(*p))
}

func (a *App) AdminListPromos(w http.ResponseWriter, r *http.Request) {
	list, err := a.Accounts.ListPromos(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]promoView, 0, len(list))
	for _, p := range list {
		items = append(items, newPromoView(p))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) AdminDeletePromo(w http.ResponseWriter, r *http.Request) {
	if err := a.Accounts.DeletePromo(r.Context(), chi.URLParam(r, "code")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequireAdmin admits callers whose stored account is an admin. The role is
// read on every request so a demotion takes effect before the token expires.
func (a *App) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := a.requireUser(w, r)
		if userID == "" {
			return
		}
		u, err := a.Accounts.Profile(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				a.error(w, r, http.StatusUnauthorized, "unauthorized", "")
				return
			}
			a.fail(w, r, err)
			return
		}
		if !u.IsAdmin() {
			a.error(w, r, http.StatusForbidden, "forbidden", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Credits  *int    `json:"credits"`
}

// AdminUpdateUser renames a user or sets their balance.
func (a *App) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	u, ok := a.adminTarget(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if !a.decode(w, r, &req) {
		return
	}
	updated, err := a.Accounts.UpdateUser(r.Context(), u.ID, domain.UserChanges{Username: req.Username, Credits: req.Credits})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger().Info().Str("user_id", u.ID).Str("admin_id", a.currentUserID(r)).Msg("admin: user updated")
	a.json(w, http.StatusOK, newProfileView(updated))
}

func (a *App) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	u, ok := a.adminTarget(w, r)
	if !ok {
		return
	}
	entries, err := a.History.ListByUser(r.Context(), u.ID, maxUserHistory)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Accounts.DeleteUser(r.Context(), u.ID); err != nil {
		a.fail(w, r, err)
		return
	}
	for _, e := range entries {
		a.dropImage(r, e.StorageKey)
	}
	a.logger().Info().Str("user_id", u.ID).Int("images", len(entries)).Str("admin_id", a.currentUserID(r)).Msg("admin: user deleted")
	w.WriteHeader(http.StatusNoContent)
}
