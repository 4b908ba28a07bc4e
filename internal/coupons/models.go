package coupons

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
)

// Coupon. A nil UserID means public; SourceOrderID is set on system-issued
// loyalty coupons and is unique, so one completed order can never yield two
// of them regardless of event redelivery.
type Coupon struct {
	Code          string              `json:"code"`
	Kind          Kind                `json:"kind"`
	Value         decimal.Decimal     `json:"value"`
	MinPurchase   decimal.Decimal     `json:"min_purchase"`
	MaxDiscount   decimal.NullDecimal `json:"max_discount,omitempty"`
	ExpiresAt     time.Time           `json:"expires_at"`
	Active        bool                `json:"active"`
	UserID        string              `json:"user_id,omitempty"`
	UsageLimit    int                 `json:"usage_limit"`
	UsedCount     int                 `json:"used_count"`
	CreatedBy     string              `json:"created_by"` // admin | system
	SourceOrderID string              `json:"source_order_id,omitempty"`
	Description   string              `json:"description,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

func (c *Coupon) IsValid(now time.Time) bool {
	return c.Active && c.ExpiresAt.After(now) && c.UsedCount < c.UsageLimit
}

// Discount returns the amount this coupon takes off a purchase, zero if
// the coupon does not apply. Never exceeds the purchase amount.
func (c *Coupon) Discount(amount decimal.Decimal) decimal.Decimal {
	if !c.IsValid(time.Now()) || amount.LessThan(c.MinPurchase) {
		return decimal.Zero
	}

	var d decimal.Decimal
	if c.Kind == KindPercentage {
		d = amount.Mul(c.Value).Div(decimal.NewFromInt(100))
		if c.MaxDiscount.Valid && d.GreaterThan(c.MaxDiscount.Decimal) {
			d = c.MaxDiscount.Decimal
		}
	} else {
		d = c.Value
	}

	if d.GreaterThan(amount) {
		return amount
	}
	return d
}
