package domain

import "time"

// Cart represents a user's single shopping cart. Item prices are live catalog
// prices at read time, never stored on the cart. SubtotalCents is recomputed
// from those live prices whenever the cart is read.
type Cart struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Items         []CartItem `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CartItem is a single cart line keyed by product size (variant).
type CartItem struct {
	ProductSizeID string `json:"product_size_id"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	Brand         string `json:"brand,omitempty"`
	SizeLabel     string `json:"size_label"`
	PriceCents    int64  `json:"price_cents"`
	Quantity      int    `json:"quantity"`
	StockQty      int    `json:"stock_qty"`
}

// Subtotal computes the cart subtotal in cents from live prices.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.PriceCents * int64(item.Quantity)
	}
	return total
}

// ItemCount returns the total quantity across all cart lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
