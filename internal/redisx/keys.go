package redisx

import "time"

const (
	// Dedup event processing: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "payment_status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Cache cart: cart:{user_id} -> serialized cart
	KeyCart = "cart:%s"

	// Cache coupon by code: coupon:{code}
	KeyCoupon = "coupon:%s"
)

var (
	TTLDedup       = 48 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLCartCache   = 15 * time.Minute
	TTLCouponCache = 30 * 24 * time.Hour
)
