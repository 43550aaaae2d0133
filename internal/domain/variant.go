package domain

import "time"

// Variant is a sellable product size with its own stock count.
type Variant struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	SizeLabel   string    `json:"size_label"`
	PriceCents  int64     `json:"price_cents"`
	StockQty    int       `json:"stock_qty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// InStock reports whether the requested quantity can be fulfilled.
func (v *Variant) InStock(qty int) bool {
	return qty <= v.StockQty
}
