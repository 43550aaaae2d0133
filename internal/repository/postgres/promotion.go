package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sneakrush/api/internal/domain"
	"github.com/sneakrush/api/pkg/database"
)

// PromotionRepository implements repository.PromotionRepository using PostgreSQL.
type PromotionRepository struct {
	pool database.DBTX
}

// NewPromotionRepository creates a new PostgreSQL-backed promotion repository.
func NewPromotionRepository(pool database.DBTX) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// FindActiveByCode returns the active promotion matching the code
// case-insensitively, or nil with no error when no promotion applies. The
// activity window check happens in SQL so the answer matches database time.
func (r *PromotionRepository) FindActiveByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	var p domain.Promotion
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, discount_type, discount_value, start_date, end_date, is_active
		FROM promotions
		WHERE LOWER(code) = LOWER($1)
		  AND is_active
		  AND (start_date IS NULL OR start_date <= NOW())
		  AND (end_date IS NULL OR end_date >= NOW())`,
		code,
	).Scan(&p.ID, &p.Code, &p.DiscountType, &p.DiscountValue, &p.StartDate, &p.EndDate, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find promotion: %w", err)
	}
	return &p, nil
}
