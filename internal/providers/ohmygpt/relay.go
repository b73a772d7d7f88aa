package ohmygpt

import (
	"context"
	"net/http"
	"strings"
	"time"

	"setka/internal/infra"
)

// RelayRequest is the body accepted by the same-origin relay.
type RelayRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// RelayResponse is the relay's success body.
type RelayResponse struct {
	ImageURL string `json:"imageUrl"`
}

type relayReply struct {
	ImageURL string `json:"imageUrl"`
	Message  string `json:"message"`
}

// RelayClient generates images through the relay endpoint, so callers never
// hold the upstream key.
type RelayClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewRelayClient targets endpoint, typically ".../api/generate-image".
func NewRelayClient(endpoint string, httpClient *http.Client, logger *infra.Logger) *RelayClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &RelayClient{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: httpClient,
		logger:     infra.OrNop(logger),
	}
}

// GenerateImage posts the prompt to the relay. The key argument is ignored;
// the relay always uses its own.
func (r *RelayClient) GenerateImage(ctx context.Context, _ string, model, prompt string) (string, error) {
	var reply relayReply
	status, err := postJSON(ctx, r.httpClient, r.endpoint, "", RelayRequest{Prompt: prompt, Model: model}, &reply)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		msg := reply.Message
		if msg == "" {
			msg = "relay request failed"
		}
		return "", &APIError{StatusCode: status, Message: msg}
	}
	if strings.TrimSpace(reply.ImageURL) == "" {
		return "", ErrEmptyImage
	}
	r.logger.Debug().Str("model", model).Msg("ohmygpt: relay generated image")
	return reply.ImageURL, nil
}

// Download fetches a generated image.
func (r *RelayClient) Download(ctx context.Context, imageURL string) ([]byte, string, error) {
	return download(ctx, r.httpClient, imageURL)
}
