// Package ohmygpt talks to the OhMyGPT image API, either directly with a
// bearer key or through the same-origin relay that keeps the key server side.
package ohmygpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"setka/internal/infra"
)

// DefaultBaseURL is the upstream API root.
const DefaultBaseURL = "https://apic1.ohmycdn.com/v1"

// DefaultSize is the only size the relay asks for.
const DefaultSize = "1024x1024"

// maxResponseBytes bounds JSON bodies read from the API.
const maxResponseBytes = 1 << 20

// maxImageBytes bounds a downloaded image.
var maxImageBytes int64 = 32 << 20

var (
	// ErrMissingAPIKey indicates that no bearer key was available for an upstream call.
	ErrMissingAPIKey = errors.New("ohmygpt: api key is required")
	// ErrEmptyImage is returned when a 200 response carries no image url.
	ErrEmptyImage = errors.New("ohmygpt: response has no image url")
	// ErrImageTooLarge is returned when a download exceeds maxImageBytes.
	ErrImageTooLarge = errors.New("ohmygpt: image exceeds size limit")
)

// APIError is a non-2xx answer from the upstream or the relay.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ohmygpt: status %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus exposes the upstream status for error classification.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Options configures the client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the OhMyGPT images endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// ImageRequest is the upstream request body.
type ImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewClient constructs a client with defaults for every unset option.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     infra.OrNop(opts.Logger),
	}
}

// HasCredentials reports whether the client carries a server key.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateImage asks the upstream for one image and returns its url. key
// overrides the configured server key when non-empty.
func (c *Client) GenerateImage(ctx context.Context, key, model, prompt string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = c.apiKey
	}
	if key == "" {
		return "", ErrMissingAPIKey
	}
	payload := ImageRequest{
		Model:          model,
		Prompt:         prompt,
		N:              1,
		Size:           DefaultSize,
		ResponseFormat: "url",
	}
	var decoded imageResponse
	status, err := c.postJSON(ctx, c.baseURL+"/images/generations", key, payload, &decoded)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		return "", &APIError{StatusCode: status, Message: decoded.errorMessage()}
	}
	if len(decoded.Data) == 0 || strings.TrimSpace(decoded.Data[0].URL) == "" {
		return "", ErrEmptyImage
	}
	imageURL := strings.TrimSpace(decoded.Data[0].URL)
	c.logger.Debug().
		Str("model", model).
		Str("url", imageURL).
		Msg("ohmygpt: generated image")
	return imageURL, nil
}

// Download fetches a generated image and returns its bytes and MIME type.
func (c *Client) Download(ctx context.Context, imageURL string) ([]byte, string, error) {
	return download(ctx, c.httpClient, imageURL)
}

func (c *Client) postJSON(ctx context.Context, endpoint, key string, payload, out any) (int, error) {
	return postJSON(ctx, c.httpClient, endpoint, key, payload, out)
}

func postJSON(ctx context.Context, client *http.Client, endpoint, key string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("ohmygpt: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("ohmygpt: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ohmygpt: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("ohmygpt: read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode >= 300 {
			return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return resp.StatusCode, fmt.Errorf("ohmygpt: decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func download(ctx context.Context, client *http.Client, imageURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("ohmygpt: invalid image url: %s", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("ohmygpt: build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("ohmygpt: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", &APIError{StatusCode: resp.StatusCode, Message: "image download failed"}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("ohmygpt: read image: %w", err)
	}
	if int64(len(data)) > maxImageBytes {
		return nil, "", ErrImageTooLarge
	}
	format := resp.Header.Get("Content-Type")
	if format == "" {
		format = "image/png"
	}
	return data, format, nil
}

func (r imageResponse) errorMessage() string {
	switch {
	case r.Error != nil && r.Error.Message != "":
		return r.Error.Message
	case r.Message != "":
		return r.Message
	}
	return "image generation failed"
}
