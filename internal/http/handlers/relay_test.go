package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setka/internal/providers/ohmygpt"
)

type staticTokens map[string]string

func (s staticTokens) Token(_ context.Context, provider string) (string, error) {
	return s[provider], nil
}

type relayStub struct {
	url      string
	err      error
	gotKey   string
	gotModel string
}

func (r *relayStub) GenerateImage(_ context.Context, key, model, prompt string) (string, error) {
	r.gotKey, r.gotModel = key, model
	return r.url, r.err
}

func relayCall(t *testing.T, app *App, method, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, "/api/generate-image", strings.NewReader(body))
	rr := httptest.NewRecorder()
	app.RelayGenerateImage(rr, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return rr.Code, out
}

func TestRelayGenerateImage(t *testing.T) {
	const body = `{"prompt":"a cat","model":"dall-e-3"}`

	t.Run("method", func(t *testing.T) {
		code, out := relayCall(t, &App{}, http.MethodGet, "")
		assert.Equal(t, http.StatusMethodNotAllowed, code)
		assert.Equal(t, "Method Not Allowed", out["message"])
	})

	t.Run("no server key", func(t *testing.T) {
		app := &App{Relay: &relayStub{}, Credentials: staticTokens{}}
		code, out := relayCall(t, app, http.MethodPost, body)
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Contains(t, out["message"], "OhMyGPT")
	})

	t.Run("missing fields", func(t *testing.T) {
		app := &App{Relay: &relayStub{}, Credentials: staticTokens{"ohmygpt": "sk"}}
		code, _ := relayCall(t, app, http.MethodPost, `{"prompt":"a cat"}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("upstream status", func(t *testing.T) {
		stub := &relayStub{err: &ohmygpt.APIError{StatusCode: http.StatusTooManyRequests, Message: "slow down"}}
		app := &App{Relay: stub, Credentials: staticTokens{"ohmygpt": "sk"}}
		code, out := relayCall(t, app, http.MethodPost, body)
		assert.Equal(t, http.StatusTooManyRequests, code)
		assert.Equal(t, "slow down", out["message"])
	})

	t.Run("transport failure", func(t *testing.T) {
		app := &App{Relay: &relayStub{err: errors.New("dial tcp: refused")}, Credentials: staticTokens{"ohmygpt": "sk"}}
		code, _ := relayCall(t, app, http.MethodPost, body)
		assert.Equal(t, http.StatusInternalServerError, code)
	})

	t.Run("success", func(t *testing.T) {
		stub := &relayStub{url: "https://cdn.example/cat.png"}
		app := &App{Relay: stub, Credentials: staticTokens{"ohmygpt": "sk-server"}}
		code, out := relayCall(t, app, http.MethodPost, body)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "https://cdn.example/cat.png", out["imageUrl"])
		data := out["data"].([]any)
		require.Len(t, data, 1)
		assert.Equal(t, "https://cdn.example/cat.png", data[0].(map[string]any)["url"])
		assert.Equal(t, "sk-server", stub.gotKey)
		assert.Equal(t, "dall-e-3", stub.gotModel)
	})
}
