package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sneakrush/api/internal/domain"
	"github.com/sneakrush/api/pkg/database"
	apperrors "github.com/sneakrush/api/pkg/errors"
)

// VariantRepository implements repository.VariantRepository using PostgreSQL.
type VariantRepository struct {
	pool database.DBTX
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(pool database.DBTX) *VariantRepository {
	return &VariantRepository{pool: pool}
}

// GetByID returns the variant joined with its product.
func (r *VariantRepository) GetByID(ctx context.Context, id string) (*domain.Variant, error) {
	var v domain.Variant
	err := r.pool.QueryRow(ctx, `
		SELECT ps.id, ps.product_id, p.name, p.brand, ps.size_label, p.price_cents, ps.stock_qty
		FROM product_sizes ps
		JOIN products p ON p.id = ps.product_id
		WHERE ps.id = $1`,
		id,
	).Scan(&v.ID, &v.ProductID, &v.ProductName, &v.Brand, &v.SizeLabel, &v.PriceCents, &v.StockQty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", id)
		}
		return nil, fmt.Errorf("scan variant: %w", err)
	}
	return &v, nil
}

// SetStock sets the absolute stock quantity for the variant.
func (r *VariantRepository) SetStock(ctx context.Context, id string, qty int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE product_sizes SET stock_qty = $1 WHERE id = $2`,
		qty, id,
	)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("variant", id)
	}
	return nil
}
