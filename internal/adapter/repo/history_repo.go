package repo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"setka/internal/domain"
	"setka/internal/infra"
	"setka/internal/sqlinline"
)

// DefaultHistoryLimit caps ListByUser when the caller passes no limit.
const DefaultHistoryLimit = 50

// HistoryRepo implements domain.HistoryRepository.
type HistoryRepo struct {
	sql infra.SQLExecutor
}

func NewHistoryRepo(sql infra.SQLExecutor) *HistoryRepo {
	return &HistoryRepo{sql: sql}
}

// Insert stores entry and fills CreatedAt. Inserting the same id again replaces the image.
func (r *HistoryRepo) Insert(ctx context.Context, e *domain.HistoryEntry) error {
	return r.sql.QueryRow(ctx, sqlinline.QInsertHistoryEntry,
		e.ID, e.UserID, e.BatchID, e.Provider, e.Prompt, string(e.AspectRatio), e.StorageKey, e.MIMEType,
	).Scan(&e.CreatedAt)
}

func (r *HistoryRepo) Get(ctx context.Context, userID, id string) (*domain.HistoryEntry, error) {
	e, err := scanHistory(r.sql.QueryRow(ctx, sqlinline.QSelectHistoryEntry, userID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListByUser returns the newest entries first.
func (r *HistoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectHistoryByUser, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Delete removes one entry of userID and returns what was stored.
func (r *HistoryRepo) Delete(ctx context.Context, userID, id string) (*domain.HistoryEntry, error) {
	e, err := scanHistory(r.sql.QueryRow(ctx, sqlinline.QDeleteHistoryEntry, userID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func scanHistory(row pgx.Row) (*domain.HistoryEntry, error) {
	var e domain.HistoryEntry
	var aspect string
	if err := row.Scan(&e.ID, &e.UserID, &e.BatchID, &e.Provider, &e.Prompt, &aspect, &e.StorageKey, &e.MIMEType, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.AspectRatio = domain.AspectRatio(aspect)
	return &e, nil
}

var _ domain.HistoryRepository = (*HistoryRepo)(nil)
