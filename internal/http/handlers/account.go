package handlers

import (
	"net/http"
	"time"

	"setka/internal/domain"
)

type profileView struct {
	ID          string             `json:"id"`
	Username    string             `json:"username"`
	Role        domain.UserRole    `json:"role"`
	Credits     int                `json:"credits"`
	PaymentMode domain.PaymentMode `json:"payment_mode"`
	HasAPIKey   bool               `json:"has_api_key"`
	Locale      string             `json:"locale,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// newProfileView never exposes the stored key itself.
func newProfileView(u *domain.User) profileView {
	return profileView{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Credits:     u.Credits,
		PaymentMode: u.PaymentMode,
		HasAPIKey:   u.APIKey != "",
		Locale:      u.Locale,
		CreatedAt:   u.CreatedAt,
	}
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	u, err := a.Accounts.Profile(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newProfileView(u))
}

type paymentRequest struct {
	Mode   string `json:"mode"`
	APIKey string `json:"api_key"`
}

// SetPayment switches between shared credits and the caller's own key.
func (a *App) SetPayment(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	var req paymentRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.updatePayment(w, r, userID, req)
}

func (a *App) updatePayment(w http.ResponseWriter, r *http.Request, userID string, req paymentRequest) {
	mode, ok := domain.ParsePaymentMode(req.Mode)
	if !ok {
		a.error(w, r, http.StatusBadRequest, "invalid_selection", "unknown payment mode")
		return
	}
	u, err := a.Accounts.SetPayment(r.Context(), userID, mode, req.APIKey)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newProfileView(u))
}

type promoRequest struct {
	Code string `json:"code"`
}

func (a *App) RedeemPromo(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	var req promoRequest
	if !a.decode(w, r, &req) {
		return
	}
	if domain.NormalizePromoCode(req.Code) == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", "code required")
		return
	}
	granted, balance, err := a.Accounts.RedeemPromo(r.Context(), userID, req.Code)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"granted": granted, "credits": balance})
}
