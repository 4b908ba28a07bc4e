package cart

import (
	"context"
	"errors"
	"log"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
)

type Clearer interface {
	Clear(ctx context.Context, userID string) error
}

// Consumer clears a user's cart when their order completes. Clearing an
// already-cleared cart is a no-op, which is what makes redelivery safe.
type Consumer struct {
	Store Clearer
}

func (c *Consumer) HandleOrderEvent(ctx context.Context, env events.Envelope) error {
	if env.EventType != events.EventOrderCompleted {
		return nil
	}
	p, err := events.Decode[events.OrderCompletedPayload](env)
	if err != nil {
		log.Printf("cart consumer: drop %s: %v", env.EventID, err)
		return nil
	}

	err = c.Store.Clear(ctx, p.UserID)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Printf("cart consumer: no cart for user %s, already cleared", p.UserID)
		return nil
	case err != nil:
		return err // infra failure, let the broker redeliver
	}
	log.Printf("cart consumer: cleared cart for user %s after order %s", p.UserID, p.OrderID)
	return nil
}
