package domain

import "time"

// Order status constants.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusPreparing = "preparing"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCanceled  = "canceled"
	OrderStatusRefunded  = "refunded"
)

// Order represents a placed order with immutable price snapshots.
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Status        string      `json:"status"`
	Items         []OrderItem `json:"items,omitempty"`
	PromotionID   *string     `json:"promotion_id,omitempty"`
	PromotionCode string      `json:"promotion_code,omitempty"`
	SubtotalCents int64       `json:"subtotal_cents"`
	DiscountCents int64       `json:"discount_cents"`
	TotalCents    int64       `json:"total_cents"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderItem is a single line of an order. PriceCents is the unit price
// captured at checkout time; later catalog price changes never touch it.
type OrderItem struct {
	ID            string `json:"id"`
	OrderID       string `json:"order_id"`
	ProductSizeID string `json:"product_size_id"`
	ProductName   string `json:"product_name,omitempty"`
	SizeLabel     string `json:"size_label,omitempty"`
	Quantity      int    `json:"quantity"`
	PriceCents    int64  `json:"price_cents"`
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusPreparing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCanceled,
		OrderStatusRefunded,
	}
}

// IsValidStatus checks if a status string is valid. Any valid status may be
// set from any other; there is no transition graph.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether the status permits no further cancelation.
func IsTerminalStatus(status string) bool {
	return status == OrderStatusCanceled || status == OrderStatusRefunded
}
