package image

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// ErrMalformedResponse marks a successful call that returned no image. It is
// never retried.
var ErrMalformedResponse = errors.New("image: response carried no image")

// ProviderError is the only error type providers return.
type ProviderError struct {
	Provider   string
	Retryable  bool
	HTTPStatus int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " (status %d)", e.HTTPStatus)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether err classifies as transient.
func IsRetryable(err error) bool {
	pe := Classify(err)
	return pe != nil && pe.Retryable
}

type statusCoder interface {
	HTTPStatus() int
}

type terminal interface {
	Terminal() bool
}

// Classify maps any error onto a *ProviderError. Rate limits and quota
// exhaustion are retryable; everything else is fatal.
func Classify(err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	var term terminal
	if errors.As(err, &term) && term.Terminal() {
		out := &ProviderError{Message: err.Error(), Err: err}
		if errors.As(err, &pe) {
			out.Provider, out.HTTPStatus, out.Message = pe.Provider, pe.HTTPStatus, pe.Message
		}
		return out
	}
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Message: err.Error(), Err: err}
	}
	if errors.Is(err, ErrMalformedResponse) {
		return &ProviderError{Message: err.Error(), Err: err}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fromAPIError(*apiErrPtr, err)
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		status := sc.HTTPStatus()
		return &ProviderError{
			Retryable:  status == http.StatusTooManyRequests || retryableText(err.Error()),
			HTTPStatus: status,
			Message:    err.Error(),
			Err:        err,
		}
	}
	msg := err.Error()
	return &ProviderError{Retryable: retryableText(msg), Message: msg, Err: err}
}

func fromAPIError(apiErr genai.APIError, err error) *ProviderError {
	retry := apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	msg := apiErr.Message
	if msg == "" {
		msg = err.Error()
	}
	return &ProviderError{Retryable: retry, HTTPStatus: apiErr.Code, Message: msg, Err: err}
}

func retryableText(msg string) bool {
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// classifyFor classifies err and stamps the provider name.
func classifyFor(provider string, err error) error {
	pe := Classify(err)
	if pe == nil {
		return nil
	}
	if pe.Provider == "" {
		pe.Provider = provider
	}
	return pe
}

func fatal(provider, msg string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Message: msg, Err: err}
}

func retryable(provider, msg string) *ProviderError {
	return &ProviderError{Provider: provider, Retryable: true, Message: msg}
}
