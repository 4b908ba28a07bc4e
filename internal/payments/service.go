package payments

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store interface {
	Create(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	FindBySession(ctx context.Context, sessionID string) (*Transaction, error)
	FindByIntent(ctx context.Context, intentID string) (*Transaction, error)
	ApplyUpdate(ctx context.Context, t *Transaction, eventID, eventType string) (bool, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Transaction, error)
}

type Service struct {
	Store       Store
	Publisher   events.Publisher
	ServiceName string
}

type CheckoutItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CreateCheckout records a pending transaction for a new checkout session
// and announces it. The gateway redirect URL is synthesized here; the real
// gateway call is outside this system.
func (s *Service) CreateCheckout(ctx context.Context, userID, orderID string, items []CheckoutItem) (*Transaction, error) {
	if len(items) == 0 {
		return nil, errors.New("empty items")
	}
	total := decimal.Zero
	for _, it := range items {
		if it.Quantity < 1 || it.Price.IsNegative() {
			return nil, fmt.Errorf("invalid line item %s", it.ProductID)
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	t := &Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: "cs_" + uuid.NewString(),
		Amount:    total,
		Currency:  "usd",
		Status:    TxPending,
		OrderID:   orderID,
	}
	if err := s.Store.Create(ctx, t); err != nil {
		return nil, err
	}

	s.Publisher.Publish(ctx, events.TopicAnalytics, userID,
		events.New(events.EventPaymentInitiated, s.ServiceName, t.SessionID, events.PaymentInitiatedPayload{
			UserID:        userID,
			SessionID:     t.SessionID,
			Amount:        total,
			ProductsCount: len(items),
		}))
	return t, nil
}

// ApplyProviderEvent applies one gateway event effect exactly once per
// transaction, keyed by the provider's event id. Redelivery is a no-op.
func (s *Service) ApplyProviderEvent(ctx context.Context, ev ProviderEvent) error {
	t, err := s.find(ctx, ev)
	if errors.Is(err, ErrNotFound) {
		log.Printf("payments: no transaction for provider event %s (%s)", ev.ID, ev.Type)
		return nil
	}
	if err != nil {
		return err
	}

	switch ev.Type {
	case ProviderSessionCompleted:
		if t.Status != TxPending {
			return nil
		}
		t.Status = TxProcessing
		t.IntentID = ev.IntentID
		_, err := s.Store.ApplyUpdate(ctx, t, ev.ID, ev.Type)
		return err

	case ProviderIntentSucceeded:
		t.Status = TxSucceeded
		if ev.IntentID != "" {
			t.IntentID = ev.IntentID
		}
		if ev.Email != "" {
			t.CustomerEmail = ev.Email
		}
		first, err := s.Store.ApplyUpdate(ctx, t, ev.ID, ev.Type)
		if err != nil {
			return err
		}
		if !first {
			return nil // already applied
		}
		s.publishStatus(ctx, t, "succeeded", "")
		s.Publisher.Publish(ctx, events.TopicAnalytics, t.UserID,
			events.New(events.EventPaymentCompleted, s.ServiceName, t.ID, events.PaymentCompletedPayload{
				UserID:        t.UserID,
				TransactionID: t.ID,
				OrderID:       t.OrderID,
				Amount:        t.Amount,
				Currency:      t.Currency,
			}))
		if t.CustomerEmail != "" {
			s.Publisher.Publish(ctx, events.TopicEmailTasks, t.UserID,
				events.New(events.TaskPaymentReceiptEmail, s.ServiceName, t.ID, events.PaymentReceiptEmailPayload{
					Email:         t.CustomerEmail,
					TransactionID: t.ID,
					Amount:        t.Amount,
					PaymentMethod: "card",
				}))
		}
		return nil

	case ProviderIntentFailed:
		t.Status = TxFailed
		first, err := s.Store.ApplyUpdate(ctx, t, ev.ID, ev.Type)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
		s.publishStatus(ctx, t, "failed", ev.Reason)
		s.Publisher.Publish(ctx, events.TopicAnalytics, t.UserID,
			events.New(events.EventPaymentFailed, s.ServiceName, t.ID, events.PaymentFailedPayload{
				UserID:        t.UserID,
				TransactionID: t.ID,
				Amount:        t.Amount,
				Reason:        ev.Reason,
			}))
		return nil

	case ProviderSessionExpired:
		t.Status = TxCanceled
		_, err := s.Store.ApplyUpdate(ctx, t, ev.ID, ev.Type)
		return err

	case ProviderChargeRefunded:
		t.Status = TxRefunded
		first, err := s.Store.ApplyUpdate(ctx, t, ev.ID, ev.Type)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
		key := t.OrderID
		if key == "" {
			key = t.SessionID
		}
		s.Publisher.Publish(ctx, events.TopicPaymentEvents, key,
			events.New(events.EventPaymentRefunded, s.ServiceName, key, events.PaymentRefundedPayload{
				OrderID:   t.OrderID,
				SessionID: t.SessionID,
				RefundID:  ev.RefundID,
			}))
		return nil

	default:
		log.Printf("payments: unhandled provider event type %s", ev.Type)
		return nil
	}
}

func (s *Service) find(ctx context.Context, ev ProviderEvent) (*Transaction, error) {
	if ev.SessionID != "" {
		return s.Store.FindBySession(ctx, ev.SessionID)
	}
	if ev.IntentID != "" {
		return s.Store.FindByIntent(ctx, ev.IntentID)
	}
	return nil, ErrNotFound
}

func (s *Service) publishStatus(ctx context.Context, t *Transaction, status, reason string) {
	key := t.OrderID
	if key == "" {
		key = t.SessionID
	}
	s.Publisher.Publish(ctx, events.TopicPaymentEvents, key,
		events.New(events.EventPaymentStatusUpdated, s.ServiceName, key, events.PaymentStatusUpdatedPayload{
			OrderID:   t.OrderID,
			SessionID: t.SessionID,
			UserID:    t.UserID,
			Status:    status,
			Reason:    reason,
		}))
}
