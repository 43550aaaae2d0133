package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sneakrush/api/internal/domain"
	"github.com/sneakrush/api/pkg/database"
	apperrors "github.com/sneakrush/api/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	pool database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

// getOrCreateCartID returns the id of the user's cart, creating the row if it
// does not exist yet. The upsert on carts.user_id makes concurrent first
// writes converge on a single cart.
func getOrCreateCartID(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	var cartID string
	err := tx.QueryRow(ctx, `
		INSERT INTO carts (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id`,
		uuid.New().String(), userID,
	).Scan(&cartID)
	if err != nil {
		return "", fmt.Errorf("get or create cart: %w", err)
	}
	return cartID, nil
}

// lockVariantStock reads the variant's stock under FOR UPDATE so concurrent
// cart writes and checkouts serialize on the variant row.
func lockVariantStock(ctx context.Context, tx pgx.Tx, variantID string) (int, error) {
	var stock int
	err := tx.QueryRow(ctx,
		`SELECT stock_qty FROM product_sizes WHERE id = $1 FOR UPDATE`,
		variantID,
	).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NotFound("variant", variantID)
		}
		return 0, fmt.Errorf("lock variant: %w", err)
	}
	return stock, nil
}

// Get returns the user's cart with lines joined against live catalog prices.
// A user without a cart row gets an empty cart.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `
		SELECT c.id, c.created_at,
		       ci.product_size_id, ps.product_id, p.name, p.brand,
		       ps.size_label, p.price_cents, ci.quantity, ps.stock_qty
		FROM carts c
		LEFT JOIN cart_items ci ON ci.cart_id = c.id
		LEFT JOIN product_sizes ps ON ps.id = ci.product_size_id
		LEFT JOIN products p ON p.id = ps.product_id
		WHERE c.user_id = $1
		ORDER BY p.name, ps.size_label`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	cart := &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
	found := false

	for rows.Next() {
		found = true
		var (
			variantID, productID, name, brand, sizeLabel *string
			priceCents                                   *int64
			quantity, stockQty                           *int
		)
		if err := rows.Scan(
			&cart.ID, &cart.CreatedAt,
			&variantID, &productID, &name, &brand,
			&sizeLabel, &priceCents, &quantity, &stockQty,
		); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}

		// NULL item columns mean the cart exists but has no lines.
		if variantID == nil {
			continue
		}

		item := domain.CartItem{
			ProductSizeID: *variantID,
			ProductID:     *productID,
			ProductName:   *name,
			SizeLabel:     *sizeLabel,
			PriceCents:    *priceCents,
			Quantity:      *quantity,
			StockQty:      *stockQty,
		}
		if brand != nil {
			item.Brand = *brand
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}

	if !found {
		return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
	}
	cart.SubtotalCents = cart.Subtotal()
	return cart, nil
}

// AddItem adds qty to the user's line for the variant. The combined quantity
// is validated against the locked stock before the upsert.
func (r *CartRepository) AddItem(ctx context.Context, userID, variantID string, qty int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cartID, err := getOrCreateCartID(ctx, tx, userID)
	if err != nil {
		return err
	}

	stock, err := lockVariantStock(ctx, tx, variantID)
	if err != nil {
		return err
	}

	var existing int
	err = tx.QueryRow(ctx,
		`SELECT quantity FROM cart_items WHERE cart_id = $1 AND product_size_id = $2`,
		cartID, variantID,
	).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("read cart line: %w", err)
	}

	newQty := existing + qty
	if newQty > stock {
		return apperrors.InsufficientStock(variantID, newQty, stock)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_size_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_size_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, variantID, newQty,
	)
	if err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SetItemQuantity replaces the line quantity. Zero removes the line.
func (r *CartRepository) SetItemQuantity(ctx context.Context, userID, variantID string, qty int) error {
	if qty == 0 {
		_, err := r.RemoveItem(ctx, userID, variantID)
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cartID, err := getOrCreateCartID(ctx, tx, userID)
	if err != nil {
		return err
	}

	stock, err := lockVariantStock(ctx, tx, variantID)
	if err != nil {
		return err
	}

	if qty > stock {
		return apperrors.InsufficientStock(variantID, qty, stock)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_size_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_size_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, variantID, qty,
	)
	if err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RemoveItem deletes the line and reports whether a row was removed.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, variantID string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.product_size_id = $2`,
		userID, variantID,
	)
	if err != nil {
		return false, fmt.Errorf("delete cart line: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// Clear removes every line from the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// CountItems returns the summed quantity across the user's cart lines.
func (r *CartRepository) CountItems(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(ci.quantity), 0)
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cart items: %w", err)
	}
	return count, nil
}
