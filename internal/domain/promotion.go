package domain

import "time"

// Promotion discount type constants.
const (
	DiscountTypePercent = "percent"
	DiscountTypeFixed   = "fixed"
)

// Promotion represents a discount code. DiscountValue is percent points for
// "percent" promotions and cents for "fixed" promotions.
type Promotion struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue int64      `json:"discount_value"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	IsActive      bool       `json:"is_active"`
}

// IsActiveAt reports whether the promotion can be applied at the given time.
// A nil start or end date means unbounded on that side.
func (p *Promotion) IsActiveAt(t time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.StartDate != nil && t.Before(*p.StartDate) {
		return false
	}
	if p.EndDate != nil && t.After(*p.EndDate) {
		return false
	}
	return true
}

// Discount computes the discount in cents for the given subtotal. Percent
// discounts round half-up at the cent. The result is clamped to
// [0, subtotal] so a fixed discount larger than the subtotal yields a free
// order, never a negative total.
func (p *Promotion) Discount(subtotalCents int64) int64 {
	var discount int64
	switch p.DiscountType {
	case DiscountTypePercent:
		discount = (subtotalCents*p.DiscountValue + 50) / 100
	case DiscountTypeFixed:
		discount = p.DiscountValue
	default:
		return 0
	}

	if discount < 0 {
		return 0
	}
	if discount > subtotalCents {
		return subtotalCents
	}
	return discount
}
