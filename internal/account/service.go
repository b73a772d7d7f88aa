package account

import (
	"context"
	"fmt"
	"strings"

	"setka/internal/domain"
	"setka/internal/infra"
)

// Service holds the account operations exposed over HTTP and the CLI.
type Service struct {
	users  domain.UserRepository
	promos domain.PromoRepository
	logger *infra.Logger
}

func NewService(users domain.UserRepository, promos domain.PromoRepository, logger *infra.Logger) *Service {
	return &Service{users: users, promos: promos, logger: infra.OrNop(logger)}
}

// Register creates a user with an opening balance.
func (s *Service) Register(ctx context.Context, username string, credits int) (*domain.User, error) {
	u, err := s.users.Create(ctx, username, credits)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID).Str("username", u.Username).Int("credits", credits).Msg("account: registered")
	return u, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Lookup accepts a user id or a username.
func (s *Service) Lookup(ctx context.Context, ref string) (*domain.User, error) {
	ref = strings.TrimSpace(ref)
	if u, err := s.users.GetByUsername(ctx, ref); err == nil {
		return u, nil
	}
	return s.users.GetByID(ctx, ref)
}

// SetPayment switches the payment mode. Choosing apiKey requires a key;
// switching back to credits keeps the stored key unless a new one is given.
func (s *Service) SetPayment(ctx context.Context, userID string, mode domain.PaymentMode, apiKey string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = u.APIKey
	}
	if mode == domain.PaymentOwnKey && strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: an API key is required for own-key payment", domain.ErrInvalidSelection)
	}
	if err := s.users.UpdatePayment(ctx, userID, mode, key); err != nil {
		return nil, err
	}
	u.PaymentMode = mode
	u.APIKey = key
	return u, nil
}

// Grant adds credits and returns the new balance.
func (s *Service) Grant(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidSelection)
	}
	return s.users.AddCredits(ctx, userID, amount)
}

// UpdateUser renames a user or sets their balance outright.
func (s *Service) UpdateUser(ctx context.Context, userID string, changes domain.UserChanges) (*domain.User, error) {
	if changes.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidSelection)
	}
	u, err := s.users.Update(ctx, userID, changes)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID).Str("username", u.Username).Int("credits", u.Credits).Msg("account: updated")
	return u, nil
}

// DeleteUser removes a regular user. Admin accounts cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsAdmin() {
		return fmt.Errorf("%w: admin accounts cannot be deleted", domain.ErrForbidden)
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", u.ID).Str("username", u.Username).Msg("account: deleted")
	return nil
}

// RedeemPromo applies code once and returns the credits granted and the new balance.
func (s *Service) RedeemPromo(ctx context.Context, userID, code string) (int, int, error) {
	granted, err := s.promos.Redeem(ctx, code, userID)
	if err != nil {
		return 0, 0, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return granted, 0, err
	}
	s.logger.Info().Str("user_id", userID).Int("credits", granted).Msg("account: promo redeemed")
	return granted, u.Credits, nil
}

func (s *Service) CreatePromo(ctx context.Context, name string, credits int) (*domain.PromoCode, error) {
	return s.promos.Create(ctx, name, credits)
}

func (s *Service) ListPromos(ctx context.Context) ([]domain.PromoCode, error) {
	return s.promos.List(ctx)
}

func (s *Service) DeletePromo(ctx context.Context, code string) error {
	return s.promos.Delete(ctx, code)
}
