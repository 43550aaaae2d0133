package repository

import (
	"context"

	"github.com/sneakrush/api/internal/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	UserID  *string
	Status  *string
	Page    int
	PerPage int
}

// CartRepository defines persistence operations for the single-cart-per-user
// model. All mutations validate against live stock inside a transaction.
type CartRepository interface {
	// Get returns the user's cart with lines joined against live catalog
	// prices. A user with no cart row gets an empty cart, not an error.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// AddItem adds qty to the user's cart line for the variant, creating the
	// cart and the line as needed. The combined quantity is validated against
	// the variant's locked stock.
	AddItem(ctx context.Context, userID, variantID string, qty int) error

	// SetItemQuantity replaces the line quantity. Zero deletes the line.
	SetItemQuantity(ctx context.Context, userID, variantID string, qty int) error

	// RemoveItem deletes the line and reports whether a row was removed.
	RemoveItem(ctx context.Context, userID, variantID string) (bool, error)

	// Clear removes every line from the user's cart.
	Clear(ctx context.Context, userID string) error

	// CountItems returns the summed quantity across the user's cart lines.
	CountItems(ctx context.Context, userID string) (int, error)
}

// OrderRepository defines order persistence including the checkout
// transaction.
type OrderRepository interface {
	// CreateFromCart converts the user's cart into an order in one
	// transaction: lock variants, validate stock, snapshot prices, decrement
	// stock, empty the cart. promo may be nil for no discount.
	CreateFromCart(ctx context.Context, userID string, promo *domain.Promotion) (*domain.Order, error)

	// GetByID retrieves an order with its items and promotion code.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus sets the order status. The status value is validated by
	// the caller.
	UpdateStatus(ctx context.Context, id string, status string) error

	// CancelRestock cancels the order and restores stock for each item in one
	// transaction. It returns the status the order held before the call;
	// a terminal status means nothing was changed.
	CancelRestock(ctx context.Context, id string) (string, error)
}

// PromotionRepository defines promotion lookups.
type PromotionRepository interface {
	// FindActiveByCode returns the active promotion matching the code
	// case-insensitively, or nil with no error when none applies.
	FindActiveByCode(ctx context.Context, code string) (*domain.Promotion, error)
}

// VariantRepository defines product size reads and stock administration.
type VariantRepository interface {
	// GetByID returns the variant joined with its product.
	GetByID(ctx context.Context, id string) (*domain.Variant, error)

	// SetStock sets the absolute stock quantity.
	SetStock(ctx context.Context, id string, qty int) error
}

// CartCountCache caches the cart badge counter. It only ever serves the
// count endpoint; stock and checkout decisions always read Postgres.
type CartCountCache interface {
	Get(ctx context.Context, userID string) (int, bool, error)
	Set(ctx context.Context, userID string, count int) error
	Invalidate(ctx context.Context, userID string) error
}
