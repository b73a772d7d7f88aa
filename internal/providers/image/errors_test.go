package image

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("upstream failed with %d", e.code) }
func (e statusErr) HTTPStatus() int { return e.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		status    int
	}{
		{name: "genai 429", err: genai.APIError{Code: 429, Message: "quota", Status: "RESOURCE_EXHAUSTED"}, retryable: true, status: 429},
		{name: "genai wrapped exhausted", err: fmt.Errorf("call: %w", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}), retryable: true, status: 400},
		{name: "genai 400", err: genai.APIError{Code: 400, Message: "bad request", Status: "INVALID_ARGUMENT"}, status: 400},
		{name: "http 429", err: statusErr{code: 429}, retryable: true, status: 429},
		{name: "http 500", err: statusErr{code: 500}, status: 500},
		{name: "text 429", err: errors.New("got 429 from upstream"), retryable: true},
		{name: "text exhausted", err: errors.New("RESOURCE_EXHAUSTED: try later"), retryable: true},
		{name: "malformed", err: fmt.Errorf("x: %w", ErrMalformedResponse)},
		{name: "cancelled", err: context.Canceled},
		{name: "other", err: errors.New("boom")},
	}
	for _, tc := range tests {
		pe := Classify(tc.err)
		if pe == nil {
			t.Fatalf("%s: nil classification", tc.name)
		}
		if pe.Retryable != tc.retryable {
			t.Fatalf("%s: retryable = %v, want %v", tc.name, pe.Retryable, tc.retryable)
		}
		if pe.HTTPStatus != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.name, pe.HTTPStatus, tc.status)
		}
	}
	if Classify(nil) != nil {
		t.Fatal("nil error should classify as nil")
	}
}

func TestClassifyKeepsProviderError(t *testing.T) {
	orig := retryable("gemini", "no image, finish reason SAFETY")
	wrapped := fmt.Errorf("dispatch: %w", orig)
	if got := Classify(wrapped); got != orig {
		t.Fatalf("Classify should unwrap to the original *ProviderError, got %+v", got)
	}
	if !IsRetryable(wrapped) {
		t.Fatal("wrapped retryable error lost its flag")
	}
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Provider: "dall-e", HTTPStatus: 502, Message: "bad gateway"}
	if got := err.Error(); got != "dall-e: bad gateway (status 502)" {
		t.Fatalf("Error() = %q", got)
	}
	inner := errors.New("inner")
	if !errors.Is(fatal("x", "y", inner), inner) {
		t.Fatal("fatal should wrap its cause")
	}
}

type finalErr struct{ inner error }

func (e finalErr) Error() string  { return "final: " + e.inner.Error() }
func (e finalErr) Unwrap() error  { return e.inner }
func (e finalErr) Terminal() bool { return true }

func TestClassifyTerminal(t *testing.T) {
	inner := &ProviderError{Provider: "gemini", Retryable: true, HTTPStatus: 429, Message: "quota"}
	pe := Classify(finalErr{inner: inner})
	if pe.Retryable {
		t.Fatal("terminal errors must not be retryable")
	}
	if pe.HTTPStatus != 429 || pe.Provider != "gemini" || pe.Message != "quota" {
		t.Fatalf("classified = %+v", pe)
	}
}
