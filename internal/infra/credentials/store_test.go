package credentials

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"setka/internal/sqlinline"
)

// stubExecutor serves provider_keys rows from a map.
type stubExecutor struct {
	keys  map[string]string
	err   error
	execs []execCall
}

type execCall struct {
	query string
	args  []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{query: query, args: args})
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if s.err != nil {
		return stubRow{err: s.err}
	}
	key, ok := s.keys[args[0].(string)]
	if !ok {
		return stubRow{err: pgx.ErrNoRows}
	}
	return stubRow{key: key}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	key string
	err error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.key
	return nil
}

func TestTokenTrimmed(t *testing.T) {
	store := NewStore(&stubExecutor{keys: map[string]string{ProviderGemini: " abc123 "}})
	key, err := store.Token(context.Background(), ProviderGemini)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestTokenFallsBackToEnvironment(t *testing.T) {
	store := NewStore(&stubExecutor{keys: map[string]string{ProviderGemini: "  "}}).
		WithFallback(ProviderOhMyGPT, " env-key ").
		WithFallback(ProviderGemini, "env-gemini")

	key, err := store.Token(context.Background(), ProviderOhMyGPT)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "env-key" {
		t.Fatalf("expected env-key, got %q", key)
	}

	// A blank row does not shadow the fallback.
	if key, _ = store.Token(context.Background(), ProviderGemini); key != "env-gemini" {
		t.Fatalf("expected env-gemini, got %q", key)
	}
}

func TestTokenWithoutDatabase(t *testing.T) {
	store := NewStore(nil).WithFallback(ProviderGemini, "k")
	if key, err := store.Token(context.Background(), ProviderGemini); err != nil || key != "k" {
		t.Fatalf("Token = %q, %v", key, err)
	}
	if key, err := store.Token(context.Background(), ProviderOhMyGPT); err != nil || key != "" {
		t.Fatalf("Token = %q, %v", key, err)
	}
}

func TestTokenPropagatesQueryErrors(t *testing.T) {
	store := NewStore(&stubExecutor{err: errors.New("connection reset")})
	if _, err := store.Token(context.Background(), ProviderGemini); err == nil {
		t.Fatal("expected error")
	}
}

func TestSet(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.Set(context.Background(), "OhMyGPT", " secret "); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if len(exec.execs) != 1 {
		t.Fatalf("expected one exec, got %d", len(exec.execs))
	}
	call := exec.execs[0]
	if call.query != sqlinline.QUpsertProviderKey {
		t.Fatalf("unexpected query %q", call.query)
	}
	if len(call.args) != 3 || call.args[0] != ProviderOhMyGPT || call.args[1] != "secret" {
		t.Fatalf("unexpected args %v", call.args)
	}
}

func TestSetRejectsInvalidInput(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.Set(context.Background(), ProviderGemini, " "); err == nil {
		t.Fatal("expected error for empty key")
	}
	if err := store.Set(context.Background(), "qwen", "secret"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	if err := store.Clear(context.Background(), "qwen"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestClear(t *testing.T) {
	exec := &stubExecutor{}
	if err := NewStore(exec).Clear(context.Background(), " Gemini"); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if len(exec.execs) != 1 || exec.execs[0].query != sqlinline.QDeleteProviderKey || exec.execs[0].args[0] != ProviderGemini {
		t.Fatalf("unexpected execs %+v", exec.execs)
	}
}

func TestStatus(t *testing.T) {
	store := NewStore(&stubExecutor{keys: map[string]string{ProviderGemini: "AIza-long-key-9876"}}).
		WithFallback(ProviderGemini, "env-gemini")

	got, err := store.Status(context.Background())
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected a row per provider, got %+v", got)
	}
	if got[0] != (KeyStatus{Provider: ProviderGemini, Source: SourceDatabase, Masked: "****9876"}) {
		t.Fatalf("gemini status = %+v", got[0])
	}
	if got[1] != (KeyStatus{Provider: ProviderOhMyGPT, Source: SourceNone}) {
		t.Fatalf("ohmygpt status = %+v", got[1])
	}
	for _, s := range got {
		if strings.Contains(s.Masked, "AIza") {
			t.Fatalf("status leaks the key: %+v", s)
		}
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{"": "", "abc": "****", "abcdef": "****cdef"}
	for in, want := range cases {
		if got := Mask(in); got != want {
			t.Fatalf("Mask(%q) = %q, want %q", in, got, want)
		}
	}
}
