package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"setka/internal/middleware"
	"setka/internal/providers/image"
	"setka/internal/providers/ohmygpt"
)

type relayURL struct {
	URL string `json:"url"`
}

type relayResponse struct {
	Data     []relayURL `json:"data"`
	ImageURL string     `json:"imageUrl"`
}

// RelayGenerateImage is the same-origin relay: it injects the server's
// OhMyGPT key so browsers never see it. Error bodies are {"message": ...}
// and upstream failures keep the upstream status.
func (a *App) RelayGenerateImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.relayError(w, r, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	var key string
	if a.Credentials != nil {
		var err error
		if key, err = a.Credentials.Token(r.Context(), image.CredentialOhMyGPT); err != nil {
			a.logger().Error().Err(err).Msg("relay: load server key")
		}
	}
	if strings.TrimSpace(key) == "" || a.Relay == nil {
		a.relayError(w, r, http.StatusInternalServerError, "relay_key_missing")
		return
	}

	var req ohmygpt.RelayRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		a.relayError(w, r, http.StatusBadRequest, "relay_missing_fields")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" || strings.TrimSpace(req.Model) == "" {
		a.relayError(w, r, http.StatusBadRequest, "relay_missing_fields")
		return
	}

	url, err := a.Relay.GenerateImage(r.Context(), key, req.Model, req.Prompt)
	if err != nil {
		var apiErr *ohmygpt.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 {
			a.logger().Warn().Int("status", apiErr.StatusCode).Str("model", req.Model).Msg("relay: upstream error")
			a.json(w, apiErr.StatusCode, map[string]string{"message": apiErr.Message})
			return
		}
		a.logger().Error().Err(err).Str("model", req.Model).Msg("relay: generation failed")
		a.relayError(w, r, http.StatusInternalServerError, "internal")
		return
	}
	a.json(w, http.StatusOK, relayResponse{Data: []relayURL{{URL: url}}, ImageURL: url})
}

func (a *App) relayError(w http.ResponseWriter, r *http.Request, code int, key string) {
	a.json(w, code, map[string]string{"message": message(middleware.LocaleFromContext(r.Context()), key)})
}
