package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"setka/internal/domain"
	"setka/internal/infra"
	"setka/internal/sqlinline"
)

const uniqueViolation = "23505"

// UserRepo implements domain.UserRepository on top of the marker-tagged SQL runner.
type UserRepo struct {
	sql infra.SQLExecutor
}

// NewUserRepo creates a UserRepo.
func NewUserRepo(sql infra.SQLExecutor) *UserRepo {
	return &UserRepo{sql: sql}
}

// Create inserts a user with an opening balance.
func (r *UserRepo) Create(ctx context.Context, username string, credits int) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidSelection)
	}
	if credits < 0 {
		credits = 0
	}
	u, err := scanUser(r.sql.QueryRow(ctx, sqlinline.QInsertUser, username, credits))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// GetByID fetches a user by UUID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, id))
}

// GetByUsername matches case-insensitively.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByUsername, strings.TrimSpace(username)))
}

// UpdatePayment stores the payment mode and the user's own key.
func (r *UserRepo) UpdatePayment(ctx context.Context, id string, mode domain.PaymentMode, apiKey string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateUserPayment, id, string(mode), strings.TrimSpace(apiKey))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddCredits grants amount and returns the new balance.
func (r *UserRepo) AddCredits(ctx context.Context, id string, amount int) (int, error) {
	var balance int
	if err := r.sql.QueryRow(ctx, sqlinline.QAddUserCredits, id, amount).Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

// ChargeCredits deducts amount atomically. A short balance, or a missing
// user, leaves the row untouched and returns domain.ErrInsufficientCredits.
func (r *UserRepo) ChargeCredits(ctx context.Context, id string, amount int) (int, error) {
	var balance int
	if err := r.sql.QueryRow(ctx, sqlinline.QChargeUserCredits, id, amount).Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrInsufficientCredits
		}
		return 0, err
	}
	return balance, nil
}

// Update applies the non-nil fields of changes and returns the stored user.
func (r *UserRepo) Update(ctx context.Context, id string, changes domain.UserChanges) (*domain.User, error) {
	if changes.Username != nil {
		name := strings.TrimSpace(*changes.Username)
		if name == "" {
			return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidSelection)
		}
		changes.Username = &name
	}
	if changes.Credits != nil && *changes.Credits < 0 {
		return nil, fmt.Errorf("%w: credits cannot be negative", domain.ErrInvalidSelection)
	}
	u, err := scanUser(r.sql.QueryRow(ctx, sqlinline.QUpdateUser, id, changes.Username, changes.Credits))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// Delete removes the user together with their favorites, redemptions and history rows.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteUser, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetRole changes the role of user id. Only the CLI promotes admins.
func (r *UserRepo) SetRole(ctx context.Context, id string, role domain.UserRole) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateUserRole, id, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns up to limit users, newest first.
func (r *UserRepo) List(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectUsers, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role, mode string
	if err := row.Scan(&u.ID, &u.Username, &role, &u.Credits, &mode, &u.APIKey, &u.Locale, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.Role = domain.UserRole(role)
	u.PaymentMode, _ = domain.ParsePaymentMode(mode)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ domain.UserRepository = (*UserRepo)(nil)
