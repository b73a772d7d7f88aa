package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"setka/internal/domain"
	"setka/internal/infra"
	"setka/internal/sqlinline"
)

// PromoCodeLength is the size of generated codes.
const PromoCodeLength = 16

// PromoRepo implements domain.PromoRepository.
type PromoRepo struct {
	sql     infra.SQLExecutor
	newCode func() string
}

func NewPromoRepo(sql infra.SQLExecutor) *PromoRepo {
	return &PromoRepo{sql: sql, newCode: randomCode}
}

// Create stores a new code worth credits. The code itself is random.
func (r *PromoRepo) Create(ctx context.Context, name string, credits int) (*domain.PromoCode, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("%w: promo credits must be positive", domain.ErrInvalidSelection)
	}
	var p domain.PromoCode
	row := r.sql.QueryRow(ctx, sqlinline.QInsertPromoCode, r.newCode(), strings.TrimSpace(name), credits)
	if err := row.Scan(&p.Code, &p.Name, &p.TotalCredits, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns every code with the users who redeemed it, newest first.
func (r *PromoRepo) List(ctx context.Context) ([]domain.PromoCode, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectPromoCodes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PromoCode
	for rows.Next() {
		var p domain.PromoCode
		if err := rows.Scan(&p.Code, &p.Name, &p.TotalCredits, &p.CreatedAt, &p.UsedBy); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PromoRepo) Delete(ctx context.Context, code string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeletePromoCode, domain.NormalizePromoCode(code))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPromoNotFound
	}
	return nil
}

// Redeem credits userID once per code and returns the credits granted.
func (r *PromoRepo) Redeem(ctx context.Context, code, userID string) (int, error) {
	code = domain.NormalizePromoCode(code)
	if code == "" {
		return 0, domain.ErrPromoNotFound
	}
	var found, redeemed bool
	var granted int
	if err := r.sql.QueryRow(ctx, sqlinline.QRedeemPromoCode, code, userID).Scan(&found, &redeemed, &granted); err != nil {
		return 0, err
	}
	switch {
	case !found:
		return 0, domain.ErrPromoNotFound
	case !redeemed:
		return 0, domain.ErrPromoAlreadyUsed
	}
	return granted, nil
}

func randomCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:PromoCodeLength])
}

var _ domain.PromoRepository = (*PromoRepo)(nil)
