// Package account connects users, credits and provider keys to the
// generation orchestrator.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"setka/internal/domain"
	"setka/internal/generation"
	"setka/internal/infra"
	"setka/internal/providers/image"
)

// TokenSource hands out server-side provider keys.
type TokenSource interface {
	Token(ctx context.Context, provider string) (string, error)
}

// Gate implements generation.Charger and generation.CredentialResolver.
type Gate struct {
	users  domain.UserRepository
	tokens TokenSource
	logger *infra.Logger
}

func NewGate(users domain.UserRepository, tokens TokenSource, logger *infra.Logger) *Gate {
	return &Gate{users: users, tokens: tokens, logger: infra.OrNop(logger)}
}

// TryCharge deducts amount in one atomic update. A short balance is reported
// as ok=false, not as an error.
func (g *Gate) TryCharge(ctx context.Context, userID string, amount int) (bool, error) {
	if amount <= 0 {
		return true, nil
	}
	balance, err := g.users.ChargeCredits(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			g.logger.Info().Str("user_id", userID).Int("amount", amount).Msg("account: charge refused")
			return false, nil
		}
		return false, fmt.Errorf("account: charge %d credits: %w", amount, err)
	}
	g.logger.Debug().Str("user_id", userID).Int("amount", amount).Int("balance", balance).Msg("account: charged")
	return true, nil
}

// ResolveCredential picks the key for family. Own-key payers use their own
// Gemini key; everything else uses the shared server key.
func (g *Gate) ResolveCredential(ctx context.Context, pay generation.PaymentContext, family string) (string, error) {
	if family == image.CredentialGemini && pay.Mode == domain.PaymentOwnKey {
		u, err := g.users.GetByID(ctx, pay.UserID)
		if err != nil {
			return "", fmt.Errorf("account: load user: %w", err)
		}
		key := strings.TrimSpace(u.APIKey)
		if key == "" {
			return "", fmt.Errorf("account: user has no own %s key: %w", family, generation.ErrMissingCredential)
		}
		return key, nil
	}
	if g.tokens == nil {
		return "", generation.ErrMissingCredential
	}
	key, err := g.tokens.Token(ctx, family)
	if err != nil {
		return "", fmt.Errorf("account: load %s key: %w", family, err)
	}
	if key == "" {
		return "", fmt.Errorf("account: no server %s key: %w", family, generation.ErrMissingCredential)
	}
	return key, nil
}

var (
	_ generation.Charger            = (*Gate)(nil)
	_ generation.CredentialResolver = (*Gate)(nil)
)
