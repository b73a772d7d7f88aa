package credentials

import (
	"context"
	"fmt"
	"strings"

	"setka/internal/infra"
	"setka/internal/sqlinline"
)

// Server-side providers whose keys pay for credit-mode generations.
const (
	ProviderGemini  = "gemini"
	ProviderOhMyGPT = "ohmygpt"
)

// Providers lists every provider a key can be stored for.
var Providers = []string{ProviderGemini, ProviderOhMyGPT}

// Where a resolved key came from.
const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceNone        = "none"
)

// Store reads and writes shared provider keys. A key set through the
// environment is used when provider_keys has no row for the provider.
type Store struct {
	sql       infra.SQLExecutor
	fallbacks map[string]string
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, fallbacks: map[string]string{}}
}

// WithFallback registers an environment-provided key for provider.
func (s *Store) WithFallback(provider, key string) *Store {
	if key = strings.TrimSpace(key); key != "" {
		s.fallbacks[provider] = key
	}
	return s
}

// Token returns the stored key for provider, the registered fallback, or "".
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	key, _, err := s.resolve(ctx, provider)
	return key, err
}

func (s *Store) resolve(ctx context.Context, provider string) (string, string, error) {
	if s.sql != nil {
		var key string
		err := s.sql.QueryRow(ctx, sqlinline.QSelectProviderKey, provider).Scan(&key)
		switch {
		case err == nil:
			if key = strings.TrimSpace(key); key != "" {
				return key, SourceDatabase, nil
			}
		case !infra.IsNoRows(err):
			return "", "", fmt.Errorf("credentials: load %s key: %w", provider, err)
		}
	}
	if key := s.fallbacks[provider]; key != "" {
		return key, SourceEnvironment, nil
	}
	return "", SourceNone, nil
}

// Set stores key for provider, replacing any earlier one.
func (s *Store) Set(ctx context.Context, provider, key string) error {
	provider, err := normalizeProvider(provider)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("credentials: %s api key is required", provider)
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertProviderKey, provider, key, "setkactl"); err != nil {
		return fmt.Errorf("credentials: store %s key: %w", provider, err)
	}
	return nil
}

// Clear removes the stored key so the environment fallback applies again.
func (s *Store) Clear(ctx context.Context, provider string) error {
	provider, err := normalizeProvider(provider)
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QDeleteProviderKey, provider); err != nil {
		return fmt.Errorf("credentials: clear %s key: %w", provider, err)
	}
	return nil
}

// KeyStatus describes the key currently in effect for a provider.
type KeyStatus struct {
	Provider string
	Source   string
	Masked   string
}

// Status reports the effective key of every provider without revealing it.
func (s *Store) Status(ctx context.Context) ([]KeyStatus, error) {
	out := make([]KeyStatus, 0, len(Providers))
	for _, provider := range Providers {
		key, source, err := s.resolve(ctx, provider)
		if err != nil {
			return nil, err
		}
		out = append(out, KeyStatus{Provider: provider, Source: source, Masked: Mask(key)})
	}
	return out, nil
}

// Mask keeps the last four characters of key.
func Mask(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 4:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}

func normalizeProvider(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	for _, p := range Providers {
		if p == provider {
			return provider, nil
		}
	}
	return "", fmt.Errorf("credentials: unsupported provider %q", provider)
}
