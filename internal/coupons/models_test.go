package coupons

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func validCoupon(kind Kind, value string) *Coupon {
	return &Coupon{
		Code:       "TEST",
		Kind:       kind,
		Value:      dec(value),
		ExpiresAt:  time.Now().Add(24 * time.Hour),
		Active:     true,
		UsageLimit: 1,
	}
}

func TestIsValid(t *testing.T) {
	now := time.Now()

	c := validCoupon(KindPercentage, "10")
	assert.True(t, c.IsValid(now))

	expired := validCoupon(KindPercentage, "10")
	expired.ExpiresAt = now.Add(-time.Hour)
	assert.False(t, expired.IsValid(now))

	inactive := validCoupon(KindPercentage, "10")
	inactive.Active = false
	assert.False(t, inactive.IsValid(now))

	exhausted := validCoupon(KindPercentage, "10")
	exhausted.UsedCount = 1
	assert.False(t, exhausted.IsValid(now))
}

func TestPercentageDiscount(t *testing.T) {
	c := validCoupon(KindPercentage, "10")

	assert.True(t, c.Discount(dec("100.00")).Equal(dec("10.00")))
	assert.True(t, c.Discount(dec("49.90")).Equal(dec("4.99")))
}

func TestPercentageDiscountCappedByMax(t *testing.T) {
	c := validCoupon(KindPercentage, "50")
	c.MaxDiscount = decimal.NewNullDecimal(dec("20.00"))

	assert.True(t, c.Discount(dec("100.00")).Equal(dec("20.00")))
	assert.True(t, c.Discount(dec("30.00")).Equal(dec("15.00")), "below the cap the raw percentage applies")
}

func TestFixedDiscount(t *testing.T) {
	c := validCoupon(KindFixed, "15.00")

	assert.True(t, c.Discount(dec("100.00")).Equal(dec("15.00")))
}

func TestDiscountNeverExceedsAmount(t *testing.T) {
	c := validCoupon(KindFixed, "50.00")

	assert.True(t, c.Discount(dec("30.00")).Equal(dec("30.00")))
}

func TestDiscountBelowMinPurchase(t *testing.T) {
	c := validCoupon(KindPercentage, "10")
	c.MinPurchase = dec("50.00")

	assert.True(t, c.Discount(dec("49.99")).IsZero())
	assert.True(t, c.Discount(dec("50.00")).Equal(dec("5.00")))
}

func TestDiscountOnInvalidCouponIsZero(t *testing.T) {
	c := validCoupon(KindPercentage, "10")
	c.Active = false

	assert.True(t, c.Discount(dec("100.00")).IsZero())
}
