package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sneakrush/api/internal/domain"
	"github.com/sneakrush/api/internal/repository"
	"github.com/sneakrush/api/pkg/database"
	apperrors "github.com/sneakrush/api/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// checkoutLine is one cart line with the variant and price data needed to
// turn it into an order item.
type checkoutLine struct {
	variantID   string
	productName string
	sizeLabel   string
	quantity    int
	stockQty    int
	priceCents  int64
}

// CreateFromCart converts the user's cart into a paid order atomically.
// Variant rows are locked in a stable order, stock is validated under the
// lock, prices are snapshotted onto the order items, stock is decremented,
// and the cart is emptied. Any failure rolls the whole transaction back.
func (r *OrderRepository) CreateFromCart(ctx context.Context, userID string, promo *domain.Promotion) (order *domain.Order, err error) {
	ctx, end := database.TraceQuery(ctx, "CreateFromCart",
		"BEGIN; SELECT cart lines FOR UPDATE; INSERT orders, order_items; UPDATE product_sizes; DELETE cart_items; COMMIT")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var cartID string
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}

	// Ordering by variant id keeps the lock acquisition order stable across
	// concurrent checkouts, so two carts sharing variants cannot deadlock.
	rows, err := tx.Query(ctx, `
		SELECT ci.product_size_id, p.name, ps.size_label, ci.quantity, ps.stock_qty, p.price_cents
		FROM cart_items ci
		JOIN product_sizes ps ON ps.id = ci.product_size_id
		JOIN products p ON p.id = ps.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.product_size_id
		FOR UPDATE OF ps`,
		cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("lock cart lines: %w", err)
	}

	var lines []checkoutLine
	for rows.Next() {
		var l checkoutLine
		if err := rows.Scan(&l.variantID, &l.productName, &l.sizeLabel, &l.quantity, &l.stockQty, &l.priceCents); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}

	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	var subtotal int64
	for _, l := range lines {
		if l.quantity > l.stockQty {
			return nil, apperrors.InsufficientStock(l.variantID, l.quantity, l.stockQty)
		}
		subtotal += l.priceCents * int64(l.quantity)
	}

	var discount int64
	var promotionID *string
	if promo != nil {
		discount = promo.Discount(subtotal)
		promotionID = &promo.ID
	}
	total := subtotal - discount

	now := time.Now().UTC()
	order = &domain.Order{
		ID:            uuid.New().String(),
		UserID:        userID,
		Status:        domain.OrderStatusPaid,
		PromotionID:   promotionID,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if promo != nil {
		order.PromotionCode = promo.Code
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, promotion_id, subtotal_cents, discount_cents, total_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.ID, order.UserID, promotionID, subtotal, discount, total, order.Status, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, l := range lines {
		item := domain.OrderItem{
			ID:            uuid.New().String(),
			OrderID:       order.ID,
			ProductSizeID: l.variantID,
			ProductName:   l.productName,
			SizeLabel:     l.sizeLabel,
			Quantity:      l.quantity,
			PriceCents:    l.priceCents,
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_size_id, quantity, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, item.OrderID, item.ProductSizeID, item.Quantity, item.PriceCents,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	for _, l := range lines {
		_, err = tx.Exec(ctx,
			`UPDATE product_sizes SET stock_qty = stock_qty - $1 WHERE id = $2`,
			l.quantity, l.variantID,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return nil, fmt.Errorf("empty cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return order, nil
}

// GetByID retrieves an order with its items and promotion code.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	var promoCode *string
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, o.user_id, o.promotion_id, pr.code, o.subtotal_cents, o.discount_cents, o.total_cents, o.status, o.created_at, o.updated_at
		FROM orders o
		LEFT JOIN promotions pr ON pr.id = o.promotion_id
		WHERE o.id = $1`,
		id,
	).Scan(
		&o.ID, &o.UserID, &o.PromotionID, &promoCode, &o.SubtotalCents,
		&o.DiscountCents, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if promoCode != nil {
		o.PromotionCode = *promoCode
	}

	items, err := r.loadOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

// List returns summary rows (no items) matching the filter with the total
// count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, promotion_id, subtotal_cents, discount_cents, total_cents, status, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.PromotionID, &o.SubtotalCents, &o.DiscountCents,
			&o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, totalCount, nil
}

// UpdateStatus sets the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

// CancelRestock cancels the order and restores stock for each item in one
// transaction. It returns the status the order held before the call. A
// terminal status means nothing was changed, so a second cancel can never
// restock twice.
func (r *OrderRepository) CancelRestock(ctx context.Context, id string) (status string, err error) {
	ctx, end := database.TraceQuery(ctx, "CancelRestock",
		"BEGIN; SELECT orders FOR UPDATE; UPDATE product_sizes; UPDATE orders; COMMIT")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("order", id)
		}
		return "", fmt.Errorf("lock order: %w", err)
	}

	if domain.IsTerminalStatus(status) {
		return status, nil
	}

	rows, err := tx.Query(ctx,
		`SELECT product_size_id, quantity FROM order_items WHERE order_id = $1 ORDER BY product_size_id`,
		id,
	)
	if err != nil {
		return "", fmt.Errorf("load order items: %w", err)
	}

	type restockLine struct {
		variantID string
		quantity  int
	}
	var restocks []restockLine
	for rows.Next() {
		var l restockLine
		if err := rows.Scan(&l.variantID, &l.quantity); err != nil {
			rows.Close()
			return "", fmt.Errorf("scan order item: %w", err)
		}
		restocks = append(restocks, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate order items: %w", err)
	}

	for _, l := range restocks {
		_, err = tx.Exec(ctx,
			`UPDATE product_sizes SET stock_qty = stock_qty + $1 WHERE id = $2`,
			l.quantity, l.variantID,
		)
		if err != nil {
			return "", fmt.Errorf("restore stock: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		domain.OrderStatusCanceled, time.Now().UTC(), id,
	)
	if err != nil {
		return "", fmt.Errorf("cancel order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	return status, nil
}

// loadOrderItems retrieves all items belonging to a given order, joined with
// product name and size label for display.
func (r *OrderRepository) loadOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_size_id, p.name, ps.size_label, oi.quantity, oi.price_cents
		FROM order_items oi
		JOIN product_sizes ps ON ps.id = oi.product_size_id
		JOIN products p ON p.id = ps.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductSizeID, &item.ProductName,
			&item.SizeLabel, &item.Quantity, &item.PriceCents,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}

	return items, nil
}
