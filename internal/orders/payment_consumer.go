package orders

import (
	"context"
	"errors"
	"log"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
)

const consumerName = "order-payment"

// HandlePaymentEvent is the payment-events consumer handler. Duplicate
// delivery must be a silent no-op, guarded by the order's current payment
// status (the ledger is only a fast path, the broker's delivery count is
// never trusted).
func (s *Service) HandlePaymentEvent(ctx context.Context, env events.Envelope) error {
	switch env.EventType {
	case events.EventPaymentStatusUpdated:
		p, err := events.Decode[events.PaymentStatusUpdatedPayload](env)
		if err != nil {
			log.Printf("payment consumer: drop %s: %v", env.EventID, err)
			return nil
		}
		return s.handlePaymentStatus(ctx, env, p)
	case events.EventPaymentRefunded:
		p, err := events.Decode[events.PaymentRefundedPayload](env)
		if err != nil {
			log.Printf("payment consumer: drop %s: %v", env.EventID, err)
			return nil
		}
		return s.handleRefund(ctx, env, p)
	default:
		return nil // not ours
	}
}

func (s *Service) findOrder(ctx context.Context, orderID, sessionID string) (*Order, error) {
	if orderID != "" {
		return s.Store.Get(ctx, orderID)
	}
	return s.Store.FindBySession(ctx, sessionID)
}

func (s *Service) handlePaymentStatus(ctx context.Context, env events.Envelope, p events.PaymentStatusUpdatedPayload) error {
	// peek only: claiming before the write would strand the event if the
	// write then fails and the broker redelivers
	if s.Ledger != nil {
		if seen, err := s.Ledger.Seen(ctx, consumerName, env.EventID); err == nil && seen {
			return nil
		}
	}

	order, err := s.findOrder(ctx, p.OrderID, p.SessionID)
	if errors.Is(err, ErrNotFound) {
		log.Printf("payment consumer: no order for event %s (order=%q session=%q)", env.EventID, p.OrderID, p.SessionID)
		return nil
	}
	if err != nil {
		return err
	}

	switch p.Status {
	case "succeeded":
		if order.PaymentStatus == PaymentPaid {
			return nil // duplicate delivery
		}
		order.SetPaymentStatus(PaymentPaid, "Payment completed successfully")
		if order.Status == StatusPending {
			if err := order.Transition(StatusProcessing, "Payment received, order is being processed"); err != nil {
				return err
			}
		}
		if err := s.Store.Update(ctx, order); err != nil {
			return err
		}
		s.invalidateCache(ctx, order.ID)

		// a missed cart clear is not a payment failure
		if err := s.Cart.ClearInternal(ctx, order.UserID); err != nil {
			log.Printf("payment consumer: cart clear for user %s failed: %v", order.UserID, err)
		}

		s.Publisher.Publish(ctx, events.TopicOrderEvents, order.ID,
			events.New(events.EventOrderCompleted, s.ServiceName, order.ID, events.OrderCompletedPayload{
				OrderID:     order.ID,
				UserID:      order.UserID,
				TotalAmount: order.TotalAmount,
				LineItems:   toEventItems(order.Items),
			}))
		s.markApplied(ctx, env.EventID)
		return nil

	case "failed":
		if order.PaymentStatus == PaymentFailed {
			return nil
		}
		reason := p.Reason
		if reason == "" {
			reason = "Unknown error"
		}
		order.SetPaymentStatus(PaymentFailed, "Payment failed: "+reason)
		if err := s.Store.Update(ctx, order); err != nil {
			return err
		}
		s.invalidateCache(ctx, order.ID)
		s.markApplied(ctx, env.EventID)
		return nil
	}
	return nil
}

// markApplied records the event id once the state write has landed. A failed
// record is only logged: redelivery re-runs the handler and the payment
// status guard makes it a no-op.
func (s *Service) markApplied(ctx context.Context, eventID string) {
	if s.Ledger == nil {
		return
	}
	if _, err := s.Ledger.MarkIfNew(ctx, consumerName, eventID); err != nil {
		log.Printf("payment consumer: record %s: %v", eventID, err)
	}
}

func (s *Service) handleRefund(ctx context.Context, env events.Envelope, p events.PaymentRefundedPayload) error {
	order, err := s.findOrder(ctx, p.OrderID, p.SessionID)
	if errors.Is(err, ErrNotFound) {
		log.Printf("payment consumer: no order for refund %s", env.EventID)
		return nil
	}
	if err != nil {
		return err
	}
	if order.PaymentStatus == PaymentRefunded {
		return nil // duplicate delivery
	}

	order.SetPaymentStatus(PaymentRefunded, "Payment refunded (Refund ID: "+p.RefundID+")")
	if order.Status != StatusCancelled && !order.Status.Terminal() {
		if err := order.Transition(StatusCancelled, "Order cancelled due to payment refund"); err != nil {
			return err
		}
	}
	if err := s.Store.Update(ctx, order); err != nil {
		return err
	}
	s.invalidateCache(ctx, order.ID)
	return nil
}

func toEventItems(items []LineItem) []events.LineItem {
	out := make([]events.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, events.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return out
}
