package coupons

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/ariefcatur/go-shop-events.git/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const loyaltyConsumer = "coupon-loyalty"

type Store interface {
	Create(ctx context.Context, c *Coupon) error
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindBySourceOrder(ctx context.Context, orderID string) (*Coupon, error)
	Redeem(ctx context.Context, code string) error
}

type Deduper interface {
	Seen(ctx context.Context, consumer, eventID string) (bool, error)
	MarkIfNew(ctx context.Context, consumer, eventID string) (bool, error)
}

// Loyalty issues one thank-you coupon per completed order: 10% off the
// next purchase, 30-day expiry, single use, owned by the buyer.
type Loyalty struct {
	Store       Store
	Ledger      Deduper
	Publisher   events.Publisher
	Redis       *redis.Client
	ServiceName string
}

func (l *Loyalty) HandleOrderEvent(ctx context.Context, env events.Envelope) error {
	if env.EventType != events.EventOrderCompleted {
		return nil
	}
	p, err := events.Decode[events.OrderCompletedPayload](env)
	if err != nil {
		log.Printf("loyalty: drop %s: %v", env.EventID, err)
		return nil
	}
	if p.UserID == "" || !p.TotalAmount.IsPositive() {
		log.Printf("loyalty: skip %s: no user or non-positive total", env.EventID)
		return nil
	}

	// envelope-level dedup first (peek, never claim before the coupon row
	// exists), the coupon's own order link second
	seen, err := l.Ledger.Seen(ctx, loyaltyConsumer, env.EventID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}
	if _, err := l.Store.FindBySourceOrder(ctx, p.OrderID); err == nil {
		l.mark(ctx, env.EventID)
		return nil // redelivered under a different event id, coupon exists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	c := &Coupon{
		Code:          generateCode(),
		Kind:          KindPercentage,
		Value:         decimal.NewFromInt(10),
		MinPurchase:   decimal.Zero,
		ExpiresAt:     time.Now().UTC().AddDate(0, 0, 30),
		Active:        true,
		UserID:        p.UserID,
		UsageLimit:    1,
		CreatedBy:     "system",
		SourceOrderID: p.OrderID,
		Description:   "Thank you for your purchase! Enjoy 10% off your next order.",
	}
	if err := l.Store.Create(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			l.mark(ctx, env.EventID)
			return nil // lost the race to another delivery, fine
		}
		return err
	}
	l.mark(ctx, env.EventID)
	log.Printf("loyalty: coupon %s issued to user %s for order %s", c.Code, p.UserID, p.OrderID)

	if l.Redis != nil {
		if b := events.MustMarshal(c); b != nil {
			_ = l.Redis.Set(ctx, fmt.Sprintf(redisx.KeyCoupon, c.Code), b, redisx.TTLCouponCache).Err()
		}
	}

	l.Publisher.Publish(ctx, events.TopicEmailTasks, p.UserID,
		events.New(events.TaskLoyaltyCouponEmail, l.ServiceName, p.OrderID, events.LoyaltyCouponEmailPayload{
			UserID:     p.UserID,
			CouponCode: c.Code,
			Discount:   c.Value,
			ExpiresAt:  c.ExpiresAt,
			OrderID:    p.OrderID,
		}))
	l.Publisher.Publish(ctx, events.TopicAnalytics, p.UserID,
		events.New(events.EventCouponCreated, l.ServiceName, p.OrderID, events.CouponCreatedPayload{
			Code:    c.Code,
			UserID:  p.UserID,
			OrderID: p.OrderID,
		}))
	return nil
}

// mark records the event id after the coupon write (or its confirmed
// presence). A failed record only costs a redundant lookup on redelivery.
func (l *Loyalty) mark(ctx context.Context, eventID string) {
	if _, err := l.Ledger.MarkIfNew(ctx, loyaltyConsumer, eventID); err != nil {
		log.Printf("loyalty: record %s: %v", eventID, err)
	}
}

func generateCode() string {
	return "SAVE10-" + strings.ToUpper(uuid.NewString()[:8])
}
